package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType identifies the category of error
type ErrorType string

const (
	TypeValidation     ErrorType = "validation_error"
	TypeInvalidCode    ErrorType = "invalid_code"
	TypeSetupExpired   ErrorType = "setup_expired"
	TypeAlreadyEnabled ErrorType = "already_enabled"
	TypeNotEnabled     ErrorType = "not_enabled"
	TypeNotFound       ErrorType = "not_found"
	TypeConfig         ErrorType = "config_error"
	TypeRateLimit      ErrorType = "rate_limit_exceeded"
	TypeInternal       ErrorType = "internal_error"
)

// AppError represents RFC 7807 Problem Details
type AppError struct {
	Kind      ErrorType         `json:"-"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail"`
	Instance  string            `json:"instance,omitempty"`
	Action    string            `json:"action,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	err       error             // internal error for logging
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Title, e.err)
	}
	return e.Title
}

func (e *AppError) Unwrap() error {
	return e.err
}

func (e *AppError) WithError(err error) *AppError {
	e.err = err
	return e
}

func (e *AppError) WithRequestID(id string) *AppError {
	e.RequestID = id
	return e
}

func (e *AppError) WithInstance(instance string) *AppError {
	e.Instance = instance
	return e
}

func (e *AppError) WithErrors(errs map[string]string) *AppError {
	e.Errors = errs
	return e
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func IsInvalidCode(err error) bool    { return IsKind(err, TypeInvalidCode) }
func IsSetupExpired(err error) bool   { return IsKind(err, TypeSetupExpired) }
func IsAlreadyEnabled(err error) bool { return IsKind(err, TypeAlreadyEnabled) }
func IsConfig(err error) bool         { return IsKind(err, TypeConfig) }

// Factory functions

func ValidationError(detail, action string) *AppError {
	return &AppError{
		Kind:   TypeValidation,
		Type:   "https://jobdeck.io/errors/validation",
		Title:  "Invalid request",
		Status: http.StatusBadRequest,
		Detail: detail,
		Action: action,
	}
}

// InvalidCodeError is deliberately mechanism-agnostic: the caller must not be
// able to tell whether the TOTP or the backup-code check rejected the input.
func InvalidCodeError() *AppError {
	return &AppError{
		Kind:   TypeInvalidCode,
		Type:   "https://jobdeck.io/errors/invalid-code",
		Title:  "Invalid code",
		Status: http.StatusUnauthorized,
		Detail: "The verification code is invalid",
		Action: "Check the code in your authenticator app and try again",
	}
}

func SetupExpiredError() *AppError {
	return &AppError{
		Kind:   TypeSetupExpired,
		Type:   "https://jobdeck.io/errors/setup-expired",
		Title:  "Setup expired",
		Status: http.StatusGone,
		Detail: "The two-factor setup session has expired",
		Action: "Start the setup process again",
	}
}

func AlreadyEnabledError() *AppError {
	return &AppError{
		Kind:   TypeAlreadyEnabled,
		Type:   "https://jobdeck.io/errors/already-enabled",
		Title:  "Two-factor already enabled",
		Status: http.StatusConflict,
		Detail: "Two-factor authentication is already enabled for this account",
		Action: "Disable two-factor authentication before setting it up again",
	}
}

func NotEnabledError() *AppError {
	return &AppError{
		Kind:   TypeNotEnabled,
		Type:   "https://jobdeck.io/errors/not-enabled",
		Title:  "Two-factor not enabled",
		Status: http.StatusBadRequest,
		Detail: "Two-factor authentication is not enabled for this account",
		Action: "Set up two-factor authentication first",
	}
}

func NotFoundError(resource string) *AppError {
	return &AppError{
		Kind:   TypeNotFound,
		Type:   "https://jobdeck.io/errors/not-found",
		Title:  "Not found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("%s not found", resource),
		Action: "Check the request and try again",
	}
}

// ConfigError signals a fatal operator misconfiguration, surfaced at first
// use. It is never retryable.
func ConfigError(detail string) *AppError {
	return &AppError{
		Kind:   TypeConfig,
		Type:   "https://jobdeck.io/errors/config",
		Title:  "Service misconfigured",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Action: "Contact the administrator",
	}
}

func RateLimitError() *AppError {
	return &AppError{
		Kind:   TypeRateLimit,
		Type:   "https://jobdeck.io/errors/rate-limit",
		Title:  "Too many requests",
		Status: http.StatusTooManyRequests,
		Detail: "Too many requests in a short period",
		Action: "Wait a moment and try again",
	}
}

func InternalError(detail, action string) *AppError {
	return &AppError{
		Kind:   TypeInternal,
		Type:   "https://jobdeck.io/errors/internal",
		Title:  "Internal error",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Action: action,
	}
}
