package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// DatabaseErrorMessage describes failures talking to the user database.
	DatabaseErrorMessage = "database operation failed"
	// QueryErrorMessage describes a query rejected by the database.
	QueryErrorMessage = "query rejected by database"
	// LLMErrorMessage describes failures of the language model provider.
	LLMErrorMessage = "language model request failed"
	// NotConnectedMessage is returned when a conversation has no database attached.
	NotConnectedMessage = "database not connected"
	// InvalidInputMessage is returned for malformed client input.
	InvalidInputMessage = "invalid input"
	// RejectedQueryMessage is returned when generated SQL fails validation.
	RejectedQueryMessage = "generated query was rejected"
)

var (
	// ErrNotConnected reports that no database is attached to the conversation.
	ErrNotConnected = errors.New("database not initialized")
	// ErrEmptySQL reports that the model produced no query.
	ErrEmptySQL = errors.New("model returned empty SQL")
	// ErrMultipleStatements reports that the model produced more than one statement.
	ErrMultipleStatements = errors.New("multiple SQL statements are not allowed")
	// ErrWriteStatement reports a data-modifying statement in read-only mode.
	ErrWriteStatement = errors.New("only read statements are allowed")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Invalid marks client input as malformed.
func Invalid(err error) *AppError {
	return New(err, http.StatusBadRequest, InvalidInputMessage)
}

// NotConnected reports that the conversation has no database attached.
func NotConnected(conversationID string) *AppError {
	return New(fmt.Errorf("conversation %q: %w", conversationID, ErrNotConnected), http.StatusConflict, NotConnectedMessage)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
