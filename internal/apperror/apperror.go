package apperror

import (
	"errors"
	"fmt"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrPersistenceConflict = errors.New("persistence conflict")
	ErrPersistenceQueued   = errors.New("persistence queued")
	ErrAlreadyPosted       = errors.New("already posted")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

type AppError struct {
	Err     error  // sentinel
	Message string // safe to show to the caller
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func InsufficientCredits(balance, cost int64) *AppError {
	return &AppError{
		Err:     ErrInsufficientCredits,
		Message: fmt.Sprintf("Insufficient credits: balance %d, required %d", balance, cost),
	}
}

func AlreadyPosted(contentID int64, platform string) *AppError {
	return &AppError{
		Err:     ErrAlreadyPosted,
		Message: fmt.Sprintf("content %d is already posted to %s", contentID, platform),
	}
}

// GenerationFailed reports an AI provider failure. Nothing was charged.
type GenerationFailed struct {
	Kind  gateway.Kind
	Cause error
}

func (e *GenerationFailed) Error() string {
	return fmt.Sprintf("generation failed: %s", e.Kind)
}

func (e *GenerationFailed) Unwrap() error {
	return e.Cause
}

// PostFailed reports a social platform failure. The post credit was refunded
// unless Refunded is false, in which case a refund retry was queued.
type PostFailed struct {
	Kind     gateway.Kind
	Platform string
	Refunded bool
	Cause    error
}

func (e *PostFailed) Error() string {
	return fmt.Sprintf("post to %s failed: %s", e.Platform, e.Kind)
}

func (e *PostFailed) Unwrap() error {
	return e.Cause
}
