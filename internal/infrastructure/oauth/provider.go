// Package oauth exchanges authorization codes against configured OAuth2
// providers and resolves user profiles from their userinfo endpoints.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/tenantkit/identity-api/internal/core/ports"
)

const fetchTimeout = 10 * time.Second

// ProviderConfig holds one provider's client credentials.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client resolves OAuth authorization codes into profiles for the providers
// it was configured with.
type Client struct {
	configs  map[string]*oauth2.Config
	userinfo map[string]string
}

// NewClient builds a Client for the given providers. Supported provider
// names: "google", "github". Unknown names are skipped.
func NewClient(providers map[string]ProviderConfig) *Client {
	c := &Client{
		configs:  make(map[string]*oauth2.Config),
		userinfo: make(map[string]string),
	}
	for name, p := range providers {
		switch name {
		case "google":
			c.configs[name] = &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				RedirectURL:  p.RedirectURL,
				Endpoint:     endpoints.Google,
				Scopes:       []string{"openid", "email", "profile"},
			}
			c.userinfo[name] = "https://openidconnect.googleapis.com/v1/userinfo"
		case "github":
			c.configs[name] = &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				RedirectURL:  p.RedirectURL,
				Endpoint:     endpoints.GitHub,
				Scopes:       []string{"read:user", "user:email"},
			}
			c.userinfo[name] = "https://api.github.com/user"
		}
	}
	return c
}

// AuthURL builds the provider redirect carrying the CSRF state parameter.
func (c *Client) AuthURL(provider, state string) (string, error) {
	cfg, ok := c.configs[provider]
	if !ok {
		return "", fmt.Errorf("oauth: unknown provider %q", provider)
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange swaps the authorization code for tokens and fetches the profile
// from the provider's userinfo endpoint.
func (c *Client) Exchange(ctx context.Context, provider, code string) (*ports.OAuthProfile, error) {
	cfg, ok := c.configs[provider]
	if !ok {
		return nil, fmt.Errorf("oauth: unknown provider %q", provider)
	}

	exCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	tok, err := cfg.Exchange(exCtx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth: code exchange: %w", err)
	}

	profile, err := c.fetchProfile(exCtx, cfg, provider, tok)
	if err != nil {
		return nil, err
	}
	profile.AccessToken = tok.AccessToken
	profile.RefreshToken = tok.RefreshToken
	return profile, nil
}

// userinfoPayload covers the fields we need from both google's OIDC userinfo
// and github's /user document.
type userinfoPayload struct {
	Sub   string          `json:"sub"`   // google
	ID    json.RawMessage `json:"id"`    // github (numeric)
	Email string          `json:"email"` // both; may be empty on github
	Name  string          `json:"name"`
}

func (c *Client) fetchProfile(ctx context.Context, cfg *oauth2.Config, provider string, tok *oauth2.Token) (*ports.OAuthProfile, error) {
	resp, err := cfg.Client(ctx, tok).Get(c.userinfo[provider])
	if err != nil {
		return nil, fmt.Errorf("oauth: fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth: userinfo returned %d", resp.StatusCode)
	}

	var payload userinfoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("oauth: decode userinfo: %w", err)
	}

	providerUserID := payload.Sub
	if providerUserID == "" && len(payload.ID) > 0 {
		providerUserID = string(payload.ID)
		if unquoted, err := strconv.Unquote(providerUserID); err == nil {
			providerUserID = unquoted
		}
	}
	if providerUserID == "" {
		return nil, fmt.Errorf("oauth: userinfo missing subject id")
	}

	return &ports.OAuthProfile{
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          payload.Email,
		Name:           payload.Name,
	}, nil
}
