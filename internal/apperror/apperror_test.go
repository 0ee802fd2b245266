package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("content", 7), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("title", "title is required"), ErrValidation, true},
		{"InsufficientCredits wraps sentinel", InsufficientCredits(0, 4), ErrInsufficientCredits, true},
		{"AlreadyPosted wraps sentinel", AlreadyPosted(1, "x_com"), ErrAlreadyPosted, true},
		{"wrapped NotFound still matches", fmt.Errorf("loading: %w", NotFound("content", 1)), ErrNotFound, true},
		{"NotFound does not match validation", NotFound("content", 1), ErrValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

func TestExternalFailuresUnwrapToGatewayFailure(t *testing.T) {
	cause := &gateway.Failure{Kind: gateway.ContentBlocked, Provider: "gemini"}

	var gen error = &GenerationFailed{Kind: cause.Kind, Cause: cause}
	var f *gateway.Failure
	assert.True(t, errors.As(gen, &f))
	assert.Equal(t, gateway.ContentBlocked, f.Kind)
	assert.Equal(t, "generation failed: CONTENT_BLOCKED", gen.Error())

	var post error = fmt.Errorf("handler: %w", &PostFailed{Kind: gateway.AuthExpired, Platform: "linkedin", Refunded: true, Cause: cause})
	var pf *PostFailed
	assert.True(t, errors.As(post, &pf))
	assert.Equal(t, "linkedin", pf.Platform)
	assert.True(t, pf.Refunded)
}

func TestAppErrorMessage(t *testing.T) {
	err := InsufficientCredits(2, 4)
	assert.Equal(t, "Insufficient credits: balance 2, required 4", err.Error())
}
