package auth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"MashinatoBot/internal/db"
	"MashinatoBot/internal/db/dbtest"
	"MashinatoBot/pkg/idp"
	"MashinatoBot/pkg/idp/idptest"
)

func newTestManager(t *testing.T) (*Manager, *db.Store, *idptest.Server) {
	t.Helper()
	store, _ := dbtest.New(t)
	srv := idptest.NewServer(t)
	return NewManager(store, idp.New(srv.Config()), Config{}), store, srv
}

// putSession stores an authenticated session whose access token expires in the given duration
func putSession(t *testing.T, store *db.Store, userID int64, expiresIn time.Duration) db.Session {
	t.Helper()
	s, err := store.UpdateSession(context.Background(), userID, func(s *db.Session, exists bool) error {
		s.AccessToken = "old-at"
		s.RefreshToken = "old-rt"
		s.IDToken = "old-id"
		s.TokenExpiresAt = time.Now().Add(expiresIn).Unix()
		s.Scopes = []string{"openid"}
		s.Accounts = []string{"amin"}
		s.SelectedAccount = "amin"
		s.CreatedAt = 1
		return nil
	})
	require.NoError(t, err)
	return s
}

func stateOf(t *testing.T, authorizeURL string) string {
	t.Helper()
	u, err := url.Parse(authorizeURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestLogin(t *testing.T) {
	m, store, srv := newTestManager(t)
	srv.SetIdentity("amin", "communauto:amin", "communauto:parsa", "communauto:admin", "staff")
	ctx := context.Background()

	authorizeURL, err := m.BeginLogin(ctx, 42, 4242)
	require.NoError(t, err)
	state := stateOf(t, authorizeURL)

	res, err := m.CompleteLogin(ctx, "the-code", state)
	require.NoError(t, err)
	require.Equal(t, int64(4242), res.ChatID)
	require.Equal(t, "the-code", srv.LastForm().Get("code"))
	require.NotEmpty(t, srv.LastForm().Get("code_verifier"))

	got, err := store.GetSession(ctx, 42)
	require.NoError(t, err)
	want := db.Session{
		UserID:          42,
		AccessToken:     got.AccessToken,
		RefreshToken:    got.RefreshToken,
		IDToken:         got.IDToken,
		TokenExpiresAt:  got.TokenExpiresAt,
		Scopes:          []string{"openid", "profile", "email", "groups", "offline_access"},
		Username:        "amin",
		Accounts:        []string{"amin", "parsa"},
		SelectedAccount: "amin",
		IsAdmin:         true,
		CreatedAt:       got.CreatedAt,
		LastActiveAt:    got.LastActiveAt,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
	require.True(t, got.Authenticated())
	require.Equal(t, res.Session, got)

	// replay
	_, err = m.CompleteLogin(ctx, "the-code", state)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, 1, srv.Calls("authorization_code"))
}

func TestCompleteLogin_UnknownState(t *testing.T) {
	m, _, srv := newTestManager(t)

	_, err := m.CompleteLogin(context.Background(), "code", "never-issued")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Zero(t, srv.Calls("authorization_code"))
}

func TestCompleteLogin_ExchangeFailureIsTerminal(t *testing.T) {
	m, store, srv := newTestManager(t)
	ctx := context.Background()
	srv.SetFailing(true)

	authorizeURL, err := m.BeginLogin(ctx, 1, 1)
	require.NoError(t, err)
	state := stateOf(t, authorizeURL)

	_, err = m.CompleteLogin(ctx, "code", state)
	require.ErrorIs(t, err, ErrTokenExchange)

	_, err = store.GetSession(ctx, 1)
	require.ErrorIs(t, err, db.ErrSessionNotFound)

	srv.SetFailing(false)
	_, err = m.CompleteLogin(ctx, "code", state)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteLogin_PreservesSelection(t *testing.T) {
	m, store, srv := newTestManager(t)
	ctx := context.Background()
	srv.SetIdentity("amin", "communauto:a", "communauto:b")

	_, err := store.UpdateSession(ctx, 3, func(s *db.Session, exists bool) error {
		s.Accounts = []string{"a", "b"}
		s.SelectedAccount = "b"
		s.CreatedAt = 99
		return nil
	})
	require.NoError(t, err)

	authorizeURL, err := m.BeginLogin(ctx, 3, 3)
	require.NoError(t, err)
	res, err := m.CompleteLogin(ctx, "code", stateOf(t, authorizeURL))
	require.NoError(t, err)
	require.Equal(t, "b", res.Session.SelectedAccount)
	require.Equal(t, int64(99), res.Session.CreatedAt)
}

func TestRefresh(t *testing.T) {
	t.Run("without rotation keeps the refresh token", func(t *testing.T) {
		m, store, _ := newTestManager(t)
		session := putSession(t, store, 1, 30*time.Second)

		require.True(t, m.Refresh(context.Background(), &session))
		require.NotEqual(t, "old-at", session.AccessToken)
		require.Equal(t, "old-rt", session.RefreshToken)
		require.Greater(t, session.TokenExpiresAt, time.Now().Add(time.Hour-time.Minute).Unix())

		stored, err := store.GetSession(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, stored, session)
	})

	t.Run("with rotation stores the new refresh token", func(t *testing.T) {
		m, store, srv := newTestManager(t)
		srv.SetRotate(true)
		session := putSession(t, store, 1, 30*time.Second)

		require.True(t, m.Refresh(context.Background(), &session))
		require.NotEqual(t, "old-rt", session.RefreshToken)
		require.Equal(t, "old-rt", srv.LastForm().Get("refresh_token"))
	})

	t.Run("failure leaves the stored session unchanged", func(t *testing.T) {
		m, store, srv := newTestManager(t)
		srv.SetFailing(true)
		before := putSession(t, store, 1, 30*time.Second)
		session := before

		require.False(t, m.Refresh(context.Background(), &session))
		require.Equal(t, before, session)

		stored, err := store.GetSession(context.Background(), 1)
		require.NoError(t, err)
		if diff := cmp.Diff(before, stored); diff != "" {
			t.Errorf("stored session changed (-before +after):\n%s", diff)
		}
	})

	t.Run("cancelled first caller does not fail joined callers", func(t *testing.T) {
		m, store, srv := newTestManager(t)
		srv.SetDelay(200 * time.Millisecond)
		session := putSession(t, store, 1, 30*time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		first := session
		firstDone := make(chan bool, 1)
		go func() { firstDone <- m.Refresh(ctx, &first) }()
		require.Eventually(t, func() bool { return srv.Calls("refresh_token") == 1 }, time.Second, 5*time.Millisecond)

		cancel()
		require.False(t, <-firstDone)

		second := session
		require.True(t, m.Refresh(context.Background(), &second))
		require.NotEqual(t, "old-at", second.AccessToken)
		require.Equal(t, 1, srv.Calls("refresh_token"))

		stored, err := store.GetSession(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, second.AccessToken, stored.AccessToken)
	})

	t.Run("no refresh token", func(t *testing.T) {
		m, _, srv := newTestManager(t)
		session := db.Session{UserID: 1, AccessToken: "at"}

		require.False(t, m.Refresh(context.Background(), &session))
		require.Zero(t, srv.Calls("refresh_token"))
	})
}

func TestGate_Resolve(t *testing.T) {
	tests := []struct {
		name         string
		expiresIn    time.Duration // 0 means no session
		failing      bool
		wantState    State
		wantRefreshs int
	}{
		{"no session", 0, false, StateNoSession, 0},
		{"fresh", 300 * time.Second, false, StateAuthenticated, 0},
		{"expiring within skew", 30 * time.Second, false, StateAuthenticated, 1},
		{"already expired", -time.Hour, false, StateAuthenticated, 1},
		{"refresh fails", 30 * time.Second, true, StateExpired, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store, srv := newTestManager(t)
			srv.SetFailing(tt.failing)
			if tt.expiresIn != 0 {
				putSession(t, store, 1, tt.expiresIn)
			}

			state, session, err := NewGate(m).Resolve(context.Background(), 1)
			require.NoError(t, err)
			require.Equal(t, tt.wantState, state, "state %s", state)
			require.Equal(t, tt.wantRefreshs, srv.Calls("refresh_token"))
			if state == StateAuthenticated {
				require.Greater(t, session.TokenExpiresAt-time.Now().Unix(), int64(60))
				require.Equal(t, "amin", session.SelectedAccount)
			}
		})
	}
}

func TestGate_LoggedOutSession(t *testing.T) {
	m, store, _ := newTestManager(t)
	putSession(t, store, 1, time.Hour)
	require.NoError(t, m.Logout(context.Background(), 1))

	state, session, err := NewGate(m).Resolve(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StateNoSession, state)
	require.Equal(t, []string{"amin"}, session.Accounts)
}

func TestGate_Check(t *testing.T) {
	m, _, _ := newTestManager(t)
	g := NewGate(m, "/start", "/login")

	state, _, err := g.Check(context.Background(), "/start", 1)
	require.NoError(t, err)
	require.Equal(t, StatePublicBypass, state)

	state, _, err = g.Check(context.Background(), "/whoami", 1)
	require.NoError(t, err)
	require.Equal(t, StateNoSession, state)
}

func TestGate_ConcurrentRefresh(t *testing.T) {
	m, store, srv := newTestManager(t)
	srv.SetDelay(50 * time.Millisecond)
	putSession(t, store, 1, 30*time.Second)
	g := NewGate(m)

	const n = 8
	var wg sync.WaitGroup
	tokens := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, session, err := g.Resolve(context.Background(), 1)
			if err == nil && state != StateAuthenticated {
				err = errors.New("not authenticated: " + state.String())
			}
			tokens[i], errs[i] = session.AccessToken, err
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		require.Equal(t, tokens[0], tokens[i])
	}
	require.Equal(t, 1, srv.Calls("refresh_token"))
}

func TestLogout(t *testing.T) {
	m, store, srv := newTestManager(t)
	ctx := context.Background()
	putSession(t, store, 1, time.Hour)

	require.NoError(t, m.Logout(ctx, 1))
	require.Equal(t, 1, srv.Calls("revoke"))

	got, err := store.GetSession(ctx, 1)
	require.NoError(t, err)
	require.False(t, got.Authenticated())
	require.Empty(t, got.RefreshToken)
	require.Equal(t, "amin", got.SelectedAccount)

	require.ErrorIs(t, m.Logout(ctx, 1), ErrNotAuthenticated)
}

func TestSelectAccount(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()
	_, err := store.UpdateSession(ctx, 1, func(s *db.Session, exists bool) error {
		s.AccessToken = "at"
		s.Accounts = []string{"a", "b"}
		s.SelectedAccount = "a"
		return nil
	})
	require.NoError(t, err)

	s, err := m.SelectAccount(ctx, 1, "b")
	require.NoError(t, err)
	require.Equal(t, "b", s.SelectedAccount)

	_, err = m.SelectAccount(ctx, 1, "c")
	require.ErrorIs(t, err, ErrAccountNotAuthorized)

	_, err = m.SelectAccount(ctx, 2, "a")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}
