package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	providerXCom   = "x_com"
	XComAPIBaseURL = "https://api.twitter.com"
	tweetMaxRunes  = 280
)

type XCom struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	log     *zap.Logger
}

func NewXCom(client *http.Client, baseURL string, timeout time.Duration, log *zap.Logger) *XCom {
	if baseURL == "" {
		baseURL = XComAPIBaseURL
	}
	return &XCom{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		log:     log.Named("x_com"),
	}
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func (x *XCom) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	body, err := json.Marshal(map[string]string{"text": tweetText(req.Text, req.ImageURL)})
	if err != nil {
		return nil, fail(providerXCom, UnknownProviderError, err)
	}

	callCtx, cancel := withTimeout(ctx, x.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, x.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, fail(providerXCom, UnknownProviderError, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := x.client.Do(httpReq)
	if err != nil {
		return nil, fail(providerXCom, classifyTransport(err), err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if readErr != nil {
			return nil, fail(providerXCom, classifyTransport(readErr), readErr)
		}
		return nil, fail(providerXCom, classifyStatus(resp.StatusCode), fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}

	// A 2xx means the tweet is live, so an unreadable body must not
	// turn into a failure that refunds the post.
	var tweet tweetResponse
	if readErr != nil || json.Unmarshal(respBody, &tweet) != nil || tweet.Data.ID == "" {
		x.log.Warn("tweet created without a readable id",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
			zap.NamedError("read_error", readErr),
		)
		return &PostResult{}, nil
	}
	return &PostResult{ExternalID: tweet.Data.ID}, nil
}

// tweetText shortens the text so that an appended image URL always
// survives the length limit.
func tweetText(text, imageURL string) string {
	if imageURL == "" {
		return truncateRunes(text, tweetMaxRunes)
	}
	suffix := "\n" + imageURL
	budget := tweetMaxRunes - utf8.RuneCountInString(suffix)
	if budget < 1 {
		return truncateRunes(strings.TrimSpace(text)+suffix, tweetMaxRunes)
	}
	return truncateRunes(strings.TrimSpace(text), budget) + suffix
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
