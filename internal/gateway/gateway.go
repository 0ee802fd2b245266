// Package gateway wraps the non-transactional external calls made by the
// metered operations: AI text and image generation and social posting.
//
// Every call is attempted exactly once. Callers own the retry policy and must
// branch on Failure.Kind rather than on provider-specific errors.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single external call.
const DefaultTimeout = 30 * time.Second

type Kind string

const (
	RateLimited           Kind = "RATE_LIMITED"
	ContentBlocked        Kind = "CONTENT_BLOCKED"
	AuthExpired           Kind = "AUTH_EXPIRED"
	TransientNetworkError Kind = "TRANSIENT_NETWORK_ERROR"
	UnknownProviderError  Kind = "UNKNOWN_PROVIDER_ERROR"
)

// Failure is the only error type returned by gateway implementations.
type Failure struct {
	Kind     Kind
	Provider string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Provider, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Provider, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(provider string, kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Provider: provider, Err: err}
}

// KindOf reports the failure kind carried by err. Errors that did not come
// from a gateway are treated as unknown provider errors.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return UnknownProviderError
}

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator returns a URL at which the generated image can be fetched.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type PostRequest struct {
	AccessToken string
	ProfileID   string
	Text        string
	ImageURL    string
}

type PostResult struct {
	ExternalID string
}

type SocialPoster interface {
	Post(ctx context.Context, req PostRequest) (*PostResult, error)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
