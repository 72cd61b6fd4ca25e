/*
Package idp implements a small OAuth2 (Authorization Code + PKCE) client for the identity provider
that guards the rental backend (https://goauthentik.io/ compatible endpoints).
*/
package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"MashinatoBot/pkg/duration"
)

// Config represents a configuration for the identity provider OAuth application
type Config struct {
	ClientID     string            `toml:"client_id"`
	ClientSecret string            `toml:"client_secret"`
	AuthorizeURL string            `toml:"authorize_URL"`
	TokenURL     string            `toml:"token_URL"`
	RevokeURL    string            `toml:"revoke_URL,omitempty"`
	RedirectURI  string            `toml:"redirect_URI"`
	Scopes       []string          `toml:"scopes,omitempty"`
	Timeout      duration.Duration `toml:"timeout,omitempty"`
}

// DefaultScopes are requested when none are configured: identity, group membership and offline access
var DefaultScopes = []string{"openid", "profile", "email", "groups", "offline_access"}

const (
	defaultTimeout   = 15 * time.Second
	maxTimeout       = 60 * time.Second
	defaultExpiresIn = time.Hour // used when the token response carries no `expires_in`
)

// errors
var (
	ErrTokenRequest     = errors.New("idp: token request failed")
	ErrMissingRefresh   = errors.New("idp: no refresh token")
	ErrRevokeNotEnabled = errors.New("idp: token revocation not configured")
)

// Token represents the credentials returned by the token endpoint
type Token struct {
	AccessToken  string
	RefreshToken string // empty if the provider did not rotate it
	IDToken      string
	Scope        string
	Expiry       time.Time
}

// Provider represents an identity provider client
type Provider struct {
	conf       *oauth2.Config
	revokeURL  string
	httpClient *http.Client
}

// New initializes a Provider with the given configuration
func New(config Config) *Provider {
	timeout := config.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultTimeout
	} else if timeout > maxTimeout {
		timeout = maxTimeout
	}
	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &Provider{
		conf: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthorizeURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: config.RedirectURI,
			Scopes:      scopes,
		},
		revokeURL:  config.RevokeURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthorizationURL generates an authorization URL with the given state and S256 PKCE challenge
func (p *Provider) AuthorizationURL(state, challenge string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange exchanges the given authorization code and PKCE verifier for a token
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*Token, error) {
	t, err := p.conf.Exchange(p.context(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, tokenRequestError("authorization_code", err)
	}
	return newToken(t), nil
}

// Refresh performs a refresh_token grant with the given refresh token
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefresh
	}

	// an empty access token forces the token source to hit the token endpoint
	ts := p.conf.TokenSource(p.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	t, err := ts.Token()
	if err != nil {
		return nil, tokenRequestError("refresh_token", err)
	}
	token := newToken(t)
	if token.RefreshToken == refreshToken {
		// x/oauth2 carries the old refresh token over when the provider did not return one
		token.RefreshToken = ""
	}
	return token, nil
}

// Revoke revokes the given token on the provider, if a revocation endpoint is configured
func (p *Provider) Revoke(ctx context.Context, token string) error {
	if p.revokeURL == "" {
		return ErrRevokeNotEnabled
	}

	form := url.Values{
		"client_id":     {p.conf.ClientID},
		"client_secret": {p.conf.ClientSecret},
		"token":         {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("idp: error creating revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("idp: error revoking token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("idp: bad revoke response (%d)", resp.StatusCode)
	}
	return nil
}

// context attaches the bounded HTTP client used by x/oauth2
func (p *Provider) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func newToken(t *oauth2.Token) *Token {
	token := &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
	if token.Expiry.IsZero() {
		token.Expiry = time.Now().Add(defaultExpiresIn)
	}
	if idToken, ok := t.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}
	if scope, ok := t.Extra("scope").(string); ok {
		token.Scope = scope
	}
	return token
}

func tokenRequestError(grant string, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		return fmt.Errorf("%w: %s grant (%d): %s", ErrTokenRequest, grant, rErr.Response.StatusCode, rErr.ErrorCode)
	}
	return fmt.Errorf("%w: %s grant: %v", ErrTokenRequest, grant, err)
}
