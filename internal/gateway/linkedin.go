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
)

const (
	providerLinkedIn   = "linkedin"
	LinkedInAPIBaseURL = "https://api.linkedin.com"
)

type LinkedIn struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

func NewLinkedIn(client *http.Client, baseURL string, timeout time.Duration) *LinkedIn {
	if baseURL == "" {
		baseURL = LinkedInAPIBaseURL
	}
	return &LinkedIn{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

type ugcMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

type ugcShareContent struct {
	ShareCommentary struct {
		Text string `json:"text"`
	} `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []ugcMedia `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                     `json:"author"`
	LifecycleState  string                     `json:"lifecycleState"`
	SpecificContent map[string]ugcShareContent `json:"specificContent"`
	Visibility      map[string]string          `json:"visibility"`
}

func (l *LinkedIn) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	share := ugcShareContent{ShareMediaCategory: "NONE"}
	share.ShareCommentary.Text = req.Text
	if req.ImageURL != "" {
		share.ShareMediaCategory = "ARTICLE"
		share.Media = []ugcMedia{{Status: "READY", OriginalURL: req.ImageURL}}
	}

	body, err := json.Marshal(ugcPost{
		Author:          "urn:li:person:" + req.ProfileID,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]ugcShareContent{"com.linkedin.ugc.ShareContent": share},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	})
	if err != nil {
		return nil, fail(providerLinkedIn, UnknownProviderError, err)
	}

	callCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, l.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return nil, fail(providerLinkedIn, UnknownProviderError, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, fail(providerLinkedIn, classifyTransport(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fail(providerLinkedIn, classifyStatus(resp.StatusCode), fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}

	return &PostResult{ExternalID: resp.Header.Get("X-RestLi-Id")}, nil
}
