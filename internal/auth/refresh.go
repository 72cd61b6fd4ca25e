package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"MashinatoBot/internal/db"
)

// Refresh performs a refresh_token grant for the session and atomically stores the new credentials.
// It returns false, leaving the stored session untouched, if the session has no refresh token or the grant fails.
// On success the given session is overwritten with the persisted state.
func (m *Manager) Refresh(ctx context.Context, session *db.Session) bool {
	if session.RefreshToken == "" {
		return false
	}
	logger := log.WithField("UID", session.UserID)

	held := *session
	// the flight outlives the caller that started it, joined callers must not see its cancellation
	flight := m.refreshes.DoChan(strconv.FormatInt(session.UserID, 10), func() (interface{}, error) {
		return m.refresh(context.WithoutCancel(ctx), held)
	})
	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		logger.Warnf("gave up waiting for token refresh: %v", ctx.Err())
		return false
	}
	if res.Err != nil {
		logger.Warnf("failed to refresh token: %v", res.Err)
		return false
	}
	if res.Shared {
		logger.Debug("joined an in-flight token refresh")
	}

	*session = res.Val.(db.Session)
	return true
}

func (m *Manager) refresh(ctx context.Context, held db.Session) (db.Session, error) {
	// another call path may have refreshed since the caller read its copy,
	// in which case the refresh token it holds might have been rotated already
	current, err := m.store.GetSession(ctx, held.UserID)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			return db.Session{}, ErrNotAuthenticated
		}
		return db.Session{}, err
	}
	if !current.Authenticated() {
		return db.Session{}, ErrNotAuthenticated
	}
	if current.AccessToken != held.AccessToken && !m.expiresSoon(current) {
		return current, nil
	}
	if current.RefreshToken == "" {
		return db.Session{}, ErrSessionNotRefreshable
	}

	token, err := m.provider.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return db.Session{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	now := m.now()
	return m.store.UpdateSession(ctx, held.UserID, func(s *db.Session, exists bool) error {
		if !exists || !s.Authenticated() {
			return ErrNotAuthenticated // logged out in the meantime
		}
		s.AccessToken = token.AccessToken
		s.TokenExpiresAt = token.Expiry.Unix()
		if token.RefreshToken != "" {
			s.RefreshToken = token.RefreshToken
		}
		if token.IDToken != "" {
			s.IDToken = token.IDToken
		}
		if token.Scope != "" {
			s.Scopes = strings.Fields(token.Scope)
		}
		s.LastActiveAt = now.Unix()
		return nil
	})
}

// Logout clears the user's credentials while keeping the session record, revoking the refresh token if possible
func (m *Manager) Logout(ctx context.Context, userID int64) error {
	var revoke string
	_, err := m.store.UpdateSession(ctx, userID, func(s *db.Session, exists bool) error {
		if !exists || !s.Authenticated() {
			return ErrNotAuthenticated
		}
		revoke = s.RefreshToken
		s.ClearCredentials()
		s.LastActiveAt = m.now().Unix()
		return nil
	})
	if err != nil {
		return err
	}

	if revoke != "" {
		if err = m.provider.Revoke(ctx, revoke); err != nil {
			log.WithField("UID", userID).Debugf("token not revoked: %v", err)
		}
	}
	return nil
}

// SelectAccount sets the user's active account, which must be among the authorized ones
func (m *Manager) SelectAccount(ctx context.Context, userID int64, account string) (db.Session, error) {
	return m.store.UpdateSession(ctx, userID, func(s *db.Session, exists bool) error {
		if !exists || !s.Authenticated() {
			return ErrNotAuthenticated
		}
		if !s.HasAccount(account) {
			return ErrAccountNotAuthorized
		}
		s.SelectedAccount = account
		return nil
	})
}
