package apperror

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/readtrack/readtrack/internal/logger"
)

// Fixed client messages
const (
	MsgResourceNotFound     = "Resource not found"
	MsgInvalidToken         = "Invalid authentication token"
	MsgTokenExpired         = "Authentication token has expired"
	MsgInvalidJSON          = "Invalid JSON payload"
	MsgDatabaseFailed       = "Database operation failed"
	MsgInternalServerError  = "Internal server error"
	MsgResourceExists       = "Resource already exists"
	MsgRequiredFieldMissing = "Required field is missing"
	MsgReferenceMissing     = "Referenced resource does not exist"
	MsgDatabaseConfig       = "Database configuration error"
	MsgDataTooLong          = "Data too long for field"
	MsgInvalidDataFormat    = "Invalid data format"
	MsgCheckViolation       = "Data violates check constraint"
	MsgConnectionFailed     = "Database connection failed"
)

// Mode controls how much of a raw error reaches the client
type Mode int

const (
	// ModeDefault exposes raw messages but no diagnostics
	ModeDefault Mode = iota
	// ModeDevelopment exposes raw messages, the error chain and driver details
	ModeDevelopment
	// ModeProduction redacts Database and Internal messages
	ModeProduction
)

// ModeFromEnvironment maps app.environment to a Mode
func ModeFromEnvironment(env string) Mode {
	switch strings.ToLower(env) {
	case "development":
		return ModeDevelopment
	case "production":
		return ModeProduction
	default:
		return ModeDefault
	}
}

// Classified is the normalized, boundary-safe outcome of a raised error
type Classified struct {
	Kind      Kind
	Status    int
	Message   string
	Retryable bool
	// Details carries field errors for validation failures in every mode, and
	// driver diagnostics in development mode only.
	Details any
	// Stack is the rendered error chain; set in development mode only.
	Stack string
}

type vendorRule struct {
	kind    Kind
	status  int
	message string
}

// vendorCodes maps PostgreSQL SQLSTATE codes to client outcomes
var vendorCodes = map[string]vendorRule{
	pgUniqueViolation:     {KindConflict, http.StatusConflict, MsgResourceExists},
	pgNotNullViolation:    {KindValidation, http.StatusBadRequest, MsgRequiredFieldMissing},
	pgForeignKeyViolation: {KindValidation, http.StatusBadRequest, MsgReferenceMissing},
	pgUndefinedTable:      {KindDatabase, http.StatusInternalServerError, MsgDatabaseConfig},
	pgStringDataTooLong:   {KindValidation, http.StatusBadRequest, MsgDataTooLong},
	pgInvalidTextRepr:     {KindValidation, http.StatusBadRequest, MsgInvalidDataFormat},
	pgCheckViolation:      {KindValidation, http.StatusBadRequest, MsgCheckViolation},
	pgConnectionFailure:   {KindDatabase, http.StatusInternalServerError, MsgConnectionFailed},
}

const (
	pgUniqueViolation     = "23505"
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUndefinedTable      = "42P01"
	pgStringDataTooLong   = "22001"
	pgInvalidTextRepr     = "22P02"
	pgCheckViolation      = "23514"
	pgConnectionFailure   = "08006"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
	pgClassConnection     = "08"
)

// vendorError is the driver-independent view of a PostgreSQL error
type vendorError struct {
	Code       string
	Message    string
	Detail     string
	Hint       string
	Table      string
	Column     string
	Constraint string
}

func asVendorError(err error) (vendorError, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return vendorError{
			Code:       string(pqErr.Code),
			Message:    pqErr.Message,
			Detail:     pqErr.Detail,
			Hint:       pqErr.Hint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Constraint: pqErr.Constraint,
		}, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return vendorError{
			Code:       pgErr.Code,
			Message:    pgErr.Message,
			Detail:     pgErr.Detail,
			Hint:       pgErr.Hint,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Constraint: pgErr.ConstraintName,
		}, true
	}

	return vendorError{}, false
}

func retryableCode(code string) bool {
	return strings.HasPrefix(code, pgClassConnection) || code == pgSerializationFail || code == pgDeadlockDetected
}

// Classify maps any raised error to exactly one outcome. It performs no I/O.
//
// Rules are tried in order and the first match wins, so a domain error wrapping
// a driver error is classified by its domain kind.
func Classify(err error, mode Mode) Classified {
	if err == nil {
		err = errors.New("unknown error")
	}

	c := classify(err, mode)
	if mode == ModeDevelopment {
		c.Stack = errorChain(err)
	}
	return c
}

func classify(err error, mode Mode) Classified {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return classifyDomain(domainErr, mode)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return Classified{Kind: KindNotFound, Status: http.StatusNotFound, Message: MsgResourceNotFound}
	}

	// jwt wraps expiry in ErrTokenInvalidClaims, so expiry is excluded here
	expired := errors.Is(err, jwt.ErrTokenExpired)
	if !expired && (errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims)) {
		return Classified{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: MsgInvalidToken}
	}

	if expired {
		return Classified{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: MsgTokenExpired}
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.Is(err, ErrMalformedPayload) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Classified{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: MsgInvalidJSON}
	}

	if vErr, ok := asVendorError(err); ok {
		return classifyVendor(vErr, err, mode)
	}

	return Classified{
		Kind:      KindInternal,
		Status:    http.StatusInternalServerError,
		Message:   redact(err.Error(), MsgInternalServerError, mode),
		Retryable: errors.Is(err, driver.ErrBadConn),
	}
}

func classifyDomain(domainErr *Error, mode Mode) Classified {
	switch domainErr.Kind {
	case KindValidation:
		return Classified{Kind: KindValidation, Status: http.StatusBadRequest, Message: domainErr.Message, Details: domainErr.Details}
	case KindNotFound:
		return Classified{Kind: KindNotFound, Status: http.StatusNotFound, Message: domainErr.Message}
	case KindConflict:
		return Classified{Kind: KindConflict, Status: http.StatusConflict, Message: domainErr.Message}
	case KindUnauthorized:
		return Classified{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: domainErr.Message}
	case KindDatabase:
		return Classified{Kind: KindDatabase, Status: http.StatusInternalServerError, Message: redact(domainErr.Message, MsgDatabaseFailed, mode)}
	case KindBadRequest:
		return Classified{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: domainErr.Message}
	default:
		return Classified{Kind: KindInternal, Status: http.StatusInternalServerError, Message: redact(domainErr.Message, MsgInternalServerError, mode)}
	}
}

func classifyVendor(vErr vendorError, err error, mode Mode) Classified {
	c := Classified{
		Kind:      KindDatabase,
		Status:    http.StatusInternalServerError,
		Message:   redact(err.Error(), MsgDatabaseFailed, mode),
		Retryable: retryableCode(vErr.Code),
	}
	if rule, ok := vendorCodes[vErr.Code]; ok {
		c.Kind = rule.kind
		c.Status = rule.status
		c.Message = rule.message
	}

	if mode == ModeDevelopment {
		c.Details = map[string]any{
			"code":       vErr.Code,
			"detail":     vErr.Detail,
			"hint":       vErr.Hint,
			"table":      vErr.Table,
			"column":     vErr.Column,
			"constraint": vErr.Constraint,
		}
	}
	return c
}

func redact(raw, generic string, mode Mode) string {
	if mode == ModeProduction {
		return generic
	}
	return raw
}

// errorChain renders err and everything it wraps, outermost first
func errorChain(err error) string {
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, fmt.Sprintf("%T: %s", e, e.Error()))
	}
	return strings.Join(lines, "\n")
}

// Classifier classifies errors at the HTTP boundary and logs each raw error once
type Classifier struct {
	mode Mode
	log  *logger.Logger
}

// NewClassifier creates a new Classifier
func NewClassifier(mode Mode, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{mode: mode, log: log.WithComponent("error_classifier")}
}

// Mode returns the classifier's disclosure mode
func (c *Classifier) Mode() Mode {
	return c.mode
}

// Classify logs err together with the request path and returns its outcome
func (c *Classifier) Classify(err error, path string) Classified {
	out := Classify(err, c.mode)

	var event *zerolog.Event
	if out.Status >= http.StatusInternalServerError {
		event = c.log.Error()
	} else {
		event = c.log.Warn()
	}
	event.
		Err(err).
		Str("path", path).
		Str("kind", string(out.Kind)).
		Int("status", out.Status).
		Bool("retryable", out.Retryable).
		Msg("request failed")

	return out
}
