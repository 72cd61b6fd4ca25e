package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"MashinatoBot/internal/db"
	"MashinatoBot/pkg/idp"
)

// LoginResult represents the outcome of a completed login
type LoginResult struct {
	ChatID  int64 // chat the login was started from
	Session db.Session
}

// BeginLogin starts a login for the given user and chat, returning the authorization URL to send
func (m *Manager) BeginLogin(ctx context.Context, userID, chatID int64) (string, error) {
	state, err := idp.GenerateState()
	if err != nil {
		return "", err
	}
	verifier, challenge, err := idp.GeneratePKCE()
	if err != nil {
		return "", err
	}

	if err = m.store.PutPendingLogin(ctx, db.PendingLogin{
		State:        state,
		UserID:       userID,
		ChatID:       chatID,
		CodeVerifier: verifier,
		CreatedAt:    m.now().Unix(),
	}); err != nil {
		return "", fmt.Errorf("auth: failed to put pending login: %w", err)
	}
	return m.provider.AuthorizationURL(state, challenge), nil
}

// Consume consumes the pending login with the given state, it succeeds at most once per state
func (m *Manager) Consume(ctx context.Context, state string) (db.PendingLogin, error) {
	p, err := m.store.ConsumePendingLogin(ctx, state)
	if err != nil {
		if errors.Is(err, db.ErrPendingLoginNotFound) {
			return db.PendingLogin{}, ErrInvalidState
		}
		return db.PendingLogin{}, fmt.Errorf("auth: failed to consume pending login: %w", err)
	}
	return p, nil
}

// CompleteLogin completes the login identified by state with the authorization code the provider
// redirected with. The state is consumed first, so any failure after that is terminal; the result
// still carries the originating chat then.
func (m *Manager) CompleteLogin(ctx context.Context, code, state string) (LoginResult, error) {
	p, err := m.Consume(ctx, state)
	if err != nil {
		return LoginResult{}, err
	}
	logger := log.WithFields(log.Fields{"UID": p.UserID, "chat": p.ChatID})

	token, err := m.provider.Exchange(ctx, code, p.CodeVerifier)
	if err != nil {
		return LoginResult{ChatID: p.ChatID}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	claims := idp.ParseClaims(token.IDToken)
	incoming := Incoming{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      token.IDToken,
		ExpiresAt:    token.Expiry.Unix(),
		Scopes:       strings.Fields(token.Scope),
		Username:     claims.Username,
		Accounts:     DeriveAccounts(claims.Groups, m.config.AccountGroupPrefix, m.config.AdminGroup),
		IsAdmin:      IsAdmin(claims.Groups, m.config.AccountGroupPrefix, m.config.AdminGroup),
	}

	now := m.now()
	session, err := m.store.UpdateSession(ctx, p.UserID, func(s *db.Session, exists bool) error {
		var existing *db.Session
		if exists {
			existing = s
		}
		*s = Reconcile(existing, incoming, now)
		return nil
	})
	if err != nil {
		return LoginResult{ChatID: p.ChatID}, fmt.Errorf("auth: failed to update session: %w", err)
	}

	logger.WithField("accounts", len(session.Accounts)).Infof("user %q logged in", session.Username)
	return LoginResult{ChatID: p.ChatID, Session: session}, nil
}
