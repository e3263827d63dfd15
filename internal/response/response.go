// Package response builds the uniform JSON envelopes returned by every endpoint.
package response

import (
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TimestampFormat is the fixed UTC ISO-8601 form used in envelopes
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Envelope status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SuccessEnvelope wraps a successful result. Data is always present, null when empty.
type SuccessEnvelope struct {
	Status    string `json:"status"`
	Data      any    `json:"data"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorEnvelope wraps a classified error
type ErrorEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Stack     string `json:"stack,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Normalizer produces envelopes stamped with the current time
type Normalizer struct {
	now func() time.Time
	log *logger.Logger
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{now: time.Now, log: log}
}

// WithClock returns a copy of n reading time from now
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now, log: n.log}
}

// Timestamp formats t in the envelope form
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Success wraps data and an optional message
func (n *Normalizer) Success(data any, message string) SuccessEnvelope {
	return SuccessEnvelope{
		Status:    StatusSuccess,
		Data:      data,
		Message:   message,
		Timestamp: Timestamp(n.now()),
	}
}

// Error wraps a classified error raised while serving path
func (n *Normalizer) Error(c apperror.Classified, path string) ErrorEnvelope {
	return ErrorEnvelope{
		Status:    StatusError,
		Message:   c.Message,
		Timestamp: Timestamp(n.now()),
		Path:      path,
		Stack:     c.Stack,
		Details:   c.Details,
	}
}

// WriteSuccess writes a success envelope with the given status code
func (n *Normalizer) WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	n.write(w, status, n.Success(data, message))
}

// WriteError writes the envelope of a classified error with its mapped status code
func (n *Normalizer) WriteError(w http.ResponseWriter, c apperror.Classified, path string) {
	n.write(w, c.Status, n.Error(c, path))
}

func (n *Normalizer) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		n.log.Error().Err(err).Msg("failed to encode response")
	}
}
