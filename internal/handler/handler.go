package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/logger"
	"github.com/readtrack/readtrack/internal/model"
	"github.com/readtrack/readtrack/internal/response"
	"github.com/readtrack/readtrack/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// BookService is the book API consumed by the handlers
type BookService interface {
	CreateBook(ctx context.Context, in model.CreateBookInput) error
	GetBook(ctx context.Context, id int64) (*model.BookWithAuthors, error)
	ListBooks(ctx context.Context, page, limit int) (*service.BookList, error)
	DeleteBook(ctx context.Context, id int64) error
	PurgeBook(ctx context.Context, id int64) error
}

// Pinger reports the health of a backing service
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds all HTTP handlers
type Handler struct {
	db         Pinger
	rdb        Pinger
	log        *logger.Logger
	books      BookService
	classifier *apperror.Classifier
	resp       *response.Normalizer
}

// New creates a new Handler instance. rdb may be nil when Redis is not used.
func New(db, rdb Pinger, log *logger.Logger, books BookService, classifier *apperror.Classifier, resp *response.Normalizer) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		db:         db,
		rdb:        rdb,
		log:        log,
		books:      books,
		classifier: classifier,
		resp:       resp,
	}
}

// fail classifies err and writes its error envelope
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	path := r.URL.RequestURI()
	h.resp.WriteError(w, h.classifier.Classify(err, path), path)
}

// decodeJSON decodes the request body into dst. Decoder failures are marked
// as malformed payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrMalformedPayload, err)
	}
	return nil
}

// pathID parses the {id} path value as a positive book id
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.Validationf("Invalid book id %q", r.PathValue("id"))
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent means zero
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validationf("Query parameter %s must be an integer", name)
	}
	return n, nil
}
