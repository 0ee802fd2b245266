package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const providerGemini = "gemini"

// ImageStore persists generated image bytes and returns a public URL.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type GeminiConfig struct {
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// Gemini implements TextGenerator and ImageGenerator on the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
	store  ImageStore
	log    *zap.Logger
}

func NewGemini(client *genai.Client, cfg GeminiConfig, store ImageStore, log *zap.Logger) *Gemini {
	return &Gemini{
		client: client,
		cfg:    cfg,
		store:  store,
		log:    log.Named("gemini"),
	}
}

func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.generate(ctx, g.cfg.TextModel, prompt)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fail(providerGemini, UnknownProviderError, errors.New("empty text response"))
	}
	return text, nil
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := g.generate(ctx, g.cfg.ImageModel, prompt)
	if err != nil {
		return "", err
	}

	var blob *genai.Blob
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			blob = part.InlineData
			break
		}
	}
	if blob == nil {
		return "", fail(providerGemini, UnknownProviderError, errors.New("no image in response"))
	}

	kind, err := filetype.Match(blob.Data)
	if err != nil || !filetype.IsImage(blob.Data) {
		return "", fail(providerGemini, UnknownProviderError, fmt.Errorf("unexpected image payload %q", blob.MIMEType))
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", fail(providerGemini, UnknownProviderError, err)
	}
	key := fmt.Sprintf("generated/%s.%s", id, kind.Extension)

	storeCtx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	url, err := g.store.Put(storeCtx, key, blob.Data, kind.MIME.Value)
	if err != nil {
		return "", fail("r2", TransientNetworkError, err)
	}
	return url, nil
}

func (g *Gemini) generate(ctx context.Context, model, prompt string) (*genai.GenerateContentResponse, error) {
	callCtx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(callCtx, model, genai.Text(prompt), nil)
	if err != nil {
		kind := classifyGeminiError(err)
		if callCtx.Err() != nil {
			kind = TransientNetworkError
		}
		f := fail(providerGemini, kind, err)
		g.log.Warn("generate content failed", zap.String("model", model), zap.String("kind", string(f.Kind)), zap.Error(err))
		return nil, f
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fail(providerGemini, ContentBlocked, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		if len(resp.Candidates) > 0 && resp.Candidates[0] != nil && isBlockedFinish(string(resp.Candidates[0].FinishReason)) {
			return nil, fail(providerGemini, ContentBlocked, fmt.Errorf("candidate blocked: %s", resp.Candidates[0].FinishReason))
		}
		return nil, fail(providerGemini, UnknownProviderError, errors.New("no candidates returned"))
	}
	if isBlockedFinish(string(resp.Candidates[0].FinishReason)) {
		return nil, fail(providerGemini, ContentBlocked, fmt.Errorf("candidate blocked: %s", resp.Candidates[0].FinishReason))
	}
	return resp, nil
}

func isBlockedFinish(reason string) bool {
	switch reason {
	case "SAFETY", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII", "IMAGE_SAFETY":
		return true
	}
	return false
}

// The API key belongs to us, so 401 and 403 are configuration problems
// rather than an expired user token.
func classifyGeminiError(err error) Kind {
	code, ok := geminiStatus(err)
	if !ok {
		return classifyTransport(err)
	}
	switch {
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code >= http.StatusInternalServerError:
		return TransientNetworkError
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return UnknownProviderError
	default:
		return classifyStatus(code)
	}
}

// genai returns APIError by value; accept a pointer too.
func geminiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
