package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a field-level validation error surfaced to the caller.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrUnknownEventType(eventType string) *AppError {
	return New("VAL_002", fmt.Sprintf("unknown event type: %s", eventType), http.StatusBadRequest)
}

func ErrUnknownAction(action string) *AppError {
	return New("VAL_003", fmt.Sprintf("unknown audit action: %s", action), http.StatusBadRequest)
}

func ErrMissingResourceRef() *AppError {
	return New("VAL_004", "audit entry requires a party or resource reference", http.StatusBadRequest)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrPartyNotFound is returned when a child entity references a missing party.
// A missing parent is a caller mistake, hence 400 rather than 404.
func ErrPartyNotFound() *AppError {
	return New("RES_002", "referenced party does not exist", http.StatusBadRequest)
}

func ErrDuplicate(entity string) *AppError {
	return New("RES_003", fmt.Sprintf("%s already exists", entity), http.StatusConflict)
}

// ---- Consent lifecycle (CONS) ----

func ErrInvalidConsentTransition(from, to string) *AppError {
	return New("CONS_001", fmt.Sprintf("invalid consent transition: %s -> %s", from, to), http.StatusBadRequest)
}

func ErrConsentNotPending() *AppError {
	return New("CONS_002", "consent can only be granted from pending status", http.StatusBadRequest)
}

func ErrConsentNotGranted() *AppError {
	return New("CONS_003", "consent can only be revoked from granted status", http.StatusBadRequest)
}

// ---- DSAR lifecycle (DSAR) ----

func ErrInvalidRequestTransition(from, to string) *AppError {
	return New("DSAR_001", fmt.Sprintf("invalid request transition: %s -> %s", from, to), http.StatusBadRequest)
}

func ErrRequestTerminal(status string) *AppError {
	return New("DSAR_002", fmt.Sprintf("request is already %s", status), http.StatusBadRequest)
}

// ---- Authentication & authorization (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Insufficient role for this resource", http.StatusForbidden)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Export (EXP) ----

func ErrUnsupportedExportFormat(format string) *AppError {
	return New("EXP_001", fmt.Sprintf("unsupported export format: %s", format), http.StatusBadRequest)
}

// ---- System & infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}
