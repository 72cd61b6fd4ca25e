/*
Package auth implements the login (OAuth2 Authorization Code + PKCE) flow and the credential lifecycle
of the bot's users: pending logins, session upserts, token refreshes and the request gate guarding
every protected interaction.
*/
package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"MashinatoBot/internal/db"
	"MashinatoBot/pkg/duration"
	"MashinatoBot/pkg/idp"
)

// Config represents a configuration for the authentication layer
type Config struct {
	RefreshSkew        duration.Duration `toml:"refresh_skew,omitempty"`
	AccountGroupPrefix string            `toml:"account_group_prefix,omitempty"`
	AdminGroup         string            `toml:"admin_group,omitempty"`
}

// defaults
const (
	DefaultRefreshSkew        = 60 * time.Second
	DefaultAccountGroupPrefix = "communauto"
	DefaultAdminGroup         = "admin"
)

// errors
var (
	ErrInvalidState          = errors.New("auth: invalid or expired state")
	ErrTokenExchange         = errors.New("auth: token exchange failed")
	ErrNotAuthenticated      = errors.New("auth: user not authenticated")
	ErrAccountNotAuthorized  = errors.New("auth: account not authorized")
	ErrSessionNotRefreshable = errors.New("auth: session has no refresh token")
)

// Store is the durable storage the auth layer needs
type Store interface {
	GetSession(ctx context.Context, userID int64) (db.Session, error)
	UpdateSession(ctx context.Context, userID int64, fn func(session *db.Session, exists bool) error) (db.Session, error)
	PutPendingLogin(ctx context.Context, p db.PendingLogin) error
	ConsumePendingLogin(ctx context.Context, state string) (db.PendingLogin, error)
}

// Provider is the identity provider the auth layer talks to
type Provider interface {
	AuthorizationURL(state, challenge string) string
	Exchange(ctx context.Context, code, verifier string) (*idp.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*idp.Token, error)
	Revoke(ctx context.Context, token string) error
}

// Manager manages logins and the credential lifecycle of sessions
type Manager struct {
	store    Store
	provider Provider
	config   Config

	refreshes singleflight.Group // at most one in-flight refresh per user
	now       func() time.Time
}

// NewManager initializes a Manager, filling the zero values of config with defaults
func NewManager(store Store, provider Provider, config Config) *Manager {
	if config.RefreshSkew.Duration <= 0 {
		config.RefreshSkew = duration.Of(DefaultRefreshSkew)
	}
	if config.AccountGroupPrefix == "" {
		config.AccountGroupPrefix = DefaultAccountGroupPrefix
	}
	if config.AdminGroup == "" {
		config.AdminGroup = DefaultAdminGroup
	}

	return &Manager{
		store:    store,
		provider: provider,
		config:   config,
		now:      time.Now,
	}
}

// RefreshSkew returns the lead time before expiry at which tokens get refreshed
func (m *Manager) RefreshSkew() time.Duration {
	return m.config.RefreshSkew.Duration
}

// expiresSoon reports whether the session's access token expires within the refresh skew
func (m *Manager) expiresSoon(s db.Session) bool {
	return s.TokenExpiresAt-m.now().Unix() < int64(m.config.RefreshSkew.Duration/time.Second)
}
