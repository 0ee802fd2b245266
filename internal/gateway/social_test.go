package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestXComPost(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1789","text":"hi"}}`))
	}))
	defer srv.Close()

	x := NewXCom(srv.Client(), srv.URL, time.Second, zap.NewNop())
	res, err := x.Post(context.Background(), PostRequest{AccessToken: "token-1", Text: strings.Repeat("a", 400)})
	require.NoError(t, err)
	assert.Equal(t, "1789", res.ExternalID)
	assert.Len(t, []rune(got["text"]), tweetMaxRunes)
}

func TestXComKeepsImageURLWhenTruncating(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1790"}}`))
	}))
	defer srv.Close()

	imageURL := "https://cdn.example.com/generated/abc123.png"
	x := NewXCom(srv.Client(), srv.URL, time.Second, zap.NewNop())
	_, err := x.Post(context.Background(), PostRequest{AccessToken: "t", Text: strings.Repeat("é", 400), ImageURL: imageURL})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(got["text"], "\n"+imageURL), got["text"])
	assert.Len(t, []rune(got["text"]), tweetMaxRunes)
}

func TestTweetText(t *testing.T) {
	assert.Equal(t, "short\nhttps://i", tweetText("short ", "https://i"))
	assert.Equal(t, "plain", tweetText("plain", ""))

	long := "https://" + strings.Repeat("x", 300)
	assert.Len(t, []rune(tweetText("text", long)), tweetMaxRunes)
}

func TestXComSuccessWithUnreadableBody(t *testing.T) {
	bodies := map[string]string{
		"not json":   `<html>created</html>`,
		"missing id": `{"data":{"text":"hi"}}`,
		"empty":      ``,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			x := NewXCom(srv.Client(), srv.URL, time.Second, zap.NewNop())
			res, err := x.Post(context.Background(), PostRequest{AccessToken: "t", Text: "hello"})
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Empty(t, res.ExternalID)
		})
	}
}

func TestXComStatusKinds(t *testing.T) {
	cases := map[int]Kind{
		http.StatusUnauthorized:        AuthExpired,
		http.StatusTooManyRequests:     RateLimited,
		http.StatusServiceUnavailable:  TransientNetworkError,
		http.StatusForbidden:           UnknownProviderError,
		http.StatusInternalServerError: UnknownProviderError,
	}
	for status, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		x := NewXCom(srv.Client(), srv.URL, time.Second, zap.NewNop())
		_, err := x.Post(context.Background(), PostRequest{AccessToken: "t", Text: "hello"})
		assert.Equal(t, want, KindOf(err), "status %d", status)
		srv.Close()
	}
}

func TestLinkedInPost(t *testing.T) {
	var got ugcPost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/ugcPosts", r.URL.Path)
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-RestLi-Id", "urn:li:share:42")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	l := NewLinkedIn(srv.Client(), srv.URL, time.Second)
	res, err := l.Post(context.Background(), PostRequest{
		AccessToken: "li-token",
		ProfileID:   "abc",
		Text:        "hello linkedin",
		ImageURL:    "https://cdn.example.com/generated/x.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:42", res.ExternalID)
	assert.Equal(t, "urn:li:person:abc", got.Author)

	share := got.SpecificContent["com.linkedin.ugc.ShareContent"]
	assert.Equal(t, "hello linkedin", share.ShareCommentary.Text)
	assert.Equal(t, "ARTICLE", share.ShareMediaCategory)
	require.Len(t, share.Media, 1)
}

func TestLinkedInExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Expired access token"}`))
	}))
	defer srv.Close()

	l := NewLinkedIn(srv.Client(), srv.URL, time.Second)
	_, err := l.Post(context.Background(), PostRequest{AccessToken: "old", ProfileID: "abc", Text: "x"})

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, AuthExpired, f.Kind)
	assert.Equal(t, "linkedin", f.Provider)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, UnknownProviderError, KindOf(errors.New("boom")))
	assert.Equal(t, RateLimited, KindOf(&Failure{Kind: RateLimited}))
}
