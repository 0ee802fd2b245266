package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const (
	XCOM_AUTH_URL  = "https://twitter.com/i/oauth2/authorize"
	XCOM_TOKEN_URL = "https://api.twitter.com/2/oauth2/token"
)

// SocialProvider bundles what the service needs to connect to and post on
// one platform.
type SocialProvider struct {
	Platform string
	OAuth    *oauth2.Config
	Poster   gateway.SocialPoster
	// PKCE requires a code verifier to survive until the callback.
	PKCE bool
	// ProfileID resolves the connected account using an authorized client.
	ProfileID func(ctx context.Context, client *http.Client) (string, error)
}

func NewXComProvider(app config.OAuthApp, apiBaseURL string, poster gateway.SocialPoster) *SocialProvider {
	if apiBaseURL == "" {
		apiBaseURL = gateway.XComAPIBaseURL
	}
	return &SocialProvider{
		Platform: models.PlatformXCom,
		OAuth: &oauth2.Config{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			RedirectURL:  app.RedirectURI,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   XCOM_AUTH_URL,
				TokenURL:  XCOM_TOKEN_URL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		Poster: poster,
		PKCE:   true,
		ProfileID: func(ctx context.Context, client *http.Client) (string, error) {
			var me struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			}
			if err := getJSON(ctx, client, strings.TrimRight(apiBaseURL, "/")+"/2/users/me", &me); err != nil {
				return "", err
			}
			return me.Data.ID, nil
		},
	}
}

func NewLinkedInProvider(app config.OAuthApp, apiBaseURL string, poster gateway.SocialPoster) *SocialProvider {
	if apiBaseURL == "" {
		apiBaseURL = gateway.LinkedInAPIBaseURL
	}
	return &SocialProvider{
		Platform: models.PlatformLinkedIn,
		OAuth: &oauth2.Config{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			RedirectURL:  app.RedirectURI,
			Scopes:       []string{"openid", "profile", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		},
		Poster: poster,
		ProfileID: func(ctx context.Context, client *http.Client) (string, error) {
			var info struct {
				Sub string `json:"sub"`
			}
			if err := getJSON(ctx, client, strings.TrimRight(apiBaseURL, "/")+"/v2/userinfo", &info); err != nil {
				return "", err
			}
			return info.Sub, nil
		},
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", url, err)
	}
	return nil
}

var errNoRefreshToken = errors.New("connection has no refresh token")
