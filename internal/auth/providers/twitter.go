package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prwire/subscriber/internal/config"
	"github.com/prwire/subscriber/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// PlatformTwitter is the platform key under which records are stored
	PlatformTwitter = "twitter"

	twitterAuthURL    = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL   = "https://api.twitter.com/2/oauth2/token"
	twitterAPIBaseURL = "https://api.twitter.com/2"

	// callbackPath is appended to the app URL to form the redirect URI
	callbackPath = "/api/auth/twitter/callback"
)

// TwitterProvider implements Provider against the X/Twitter v2 API.
type TwitterProvider struct {
	oauth2Config *oauth2.Config
	bearerToken  string
	apiBaseURL   string
	tokenURL     string
	client       *http.Client
}

// NewTwitterProvider creates a provider from configuration. The redirect URI
// is the app URL with any trailing slash stripped, plus the callback path;
// the exchange step reuses the exact same URI.
func NewTwitterProvider(cfg *config.TwitterConfig) *TwitterProvider {
	return &TwitterProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  strings.TrimSuffix(cfg.AppURL, "/") + callbackPath,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   twitterAuthURL,
				TokenURL:  twitterTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		bearerToken: cfg.BearerToken,
		apiBaseURL:  twitterAPIBaseURL,
		tokenURL:    twitterTokenURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *TwitterProvider) Name() string {
	return PlatformTwitter
}

func (p *TwitterProvider) Configured() bool {
	return p.oauth2Config.ClientID != ""
}

// RedirectURL returns the normalized callback URI sent to the provider.
func (p *TwitterProvider) RedirectURL() string {
	return p.oauth2Config.RedirectURL
}

func (p *TwitterProvider) AuthCodeURL(state, codeChallenge string) string {
	return p.oauth2Config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// tokenResponse is the token endpoint payload we care about.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Exchange posts the authorization code to the token endpoint with HTTP Basic
// client credentials and a form-encoded body. The exchange is done by hand
// rather than through oauth2.Config.Exchange so a 2xx response without an
// access_token is distinguishable from a rejected exchange.
func (p *TwitterProvider) Exchange(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	form := url.Values{
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {p.oauth2Config.RedirectURL},
		"code_verifier": {codeVerifier},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(url.QueryEscape(p.oauth2Config.ClientID), url.QueryEscape(p.oauth2Config.ClientSecret))

	body, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}

	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

// twitterUser mirrors the v2 user object with public metrics requested.
type twitterUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

// FetchProfile resolves the authenticated user via the users/me endpoint.
func (p *TwitterProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/users/me?user.fields=public_metrics", p.apiBaseURL)
	return p.getUser(ctx, endpoint, token.AccessToken)
}

// LookupHandle resolves a public handle with the app-only bearer token.
// A leading @ is tolerated and stripped.
func (p *TwitterProvider) LookupHandle(ctx context.Context, handle string) (*Profile, error) {
	if p.bearerToken == "" {
		return nil, ErrNotConfigured
	}

	handle = strings.TrimPrefix(handle, "@")
	endpoint := fmt.Sprintf("%s/users/by/username/%s?user.fields=public_metrics",
		p.apiBaseURL, url.PathEscape(handle))
	return p.getUser(ctx, endpoint, p.bearerToken)
}

func (p *TwitterProvider) getUser(ctx context.Context, endpoint, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := p.do(req)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var payload struct {
		Data *twitterUser `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if payload.Data == nil || payload.Data.Username == "" {
		return nil, ErrProfileNotFound
	}

	return &Profile{
		ID:             payload.Data.ID,
		Name:           payload.Data.Name,
		Username:       payload.Data.Username,
		FollowersCount: payload.Data.PublicMetrics.FollowersCount,
	}, nil
}

// do executes a request and returns the body, converting non-2xx responses
// into UpstreamError values with the status and body preserved for logging.
func (p *TwitterProvider) do(req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("Failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
