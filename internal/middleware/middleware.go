package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/config"
	"github.com/readtrack/readtrack/internal/logger"
	"github.com/readtrack/readtrack/internal/response"
)

// Counter counts requests per key in fixed windows
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Middleware holds all HTTP middleware
type Middleware struct {
	counter    Counter
	log        *logger.Logger
	cfg        *config.Config
	classifier *apperror.Classifier
	resp       *response.Normalizer
}

// New creates a new Middleware instance. counter may be nil when rate limiting is disabled.
func New(counter Counter, log *logger.Logger, cfg *config.Config, classifier *apperror.Classifier, resp *response.Normalizer) *Middleware {
	if log == nil {
		log = logger.Nop()
	}
	return &Middleware{
		counter:    counter,
		log:        log,
		cfg:        cfg,
		classifier: classifier,
		resp:       resp,
	}
}

// fail classifies err and writes its error envelope
func (m *Middleware) fail(w http.ResponseWriter, r *http.Request, err error) {
	path := r.URL.RequestURI()
	m.resp.WriteError(w, m.classifier.Classify(err, path), path)
}

// SecurityHeaders sets conservative response headers for a JSON API
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
