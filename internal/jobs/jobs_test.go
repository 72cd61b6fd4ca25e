package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"MashinatoBot/internal/auth"
	"MashinatoBot/internal/db"
	"MashinatoBot/internal/db/dbtest"
	"MashinatoBot/pkg/idp"
	"MashinatoBot/pkg/idp/idptest"
)

func TestRefreshExpiringSessions(t *testing.T) {
	store, _ := dbtest.New(t)
	srv := idptest.NewServer(t)
	manager := auth.NewManager(store, idp.New(srv.Config()), auth.Config{})
	ctx := context.Background()

	put := func(userID int64, accessToken, refreshToken string, expiresIn time.Duration) {
		_, err := store.UpdateSession(ctx, userID, func(s *db.Session, exists bool) error {
			s.AccessToken = accessToken
			s.RefreshToken = refreshToken
			s.TokenExpiresAt = time.Now().Add(expiresIn).Unix()
			return nil
		})
		require.NoError(t, err)
	}
	put(1, "at", "rt", 5*time.Minute) // within the horizon
	put(2, "at", "rt", 2*time.Hour)
	put(3, "", "", 0) // logged out
	put(4, "at", "", time.Minute)

	j, err := New(Config{}, store, manager)
	require.NoError(t, err)

	refreshed, failed := j.RefreshExpiringSessions(ctx)
	require.Equal(t, 1, refreshed)
	require.Zero(t, failed)
	require.Equal(t, 1, srv.Calls("refresh_token"))

	s, err := store.GetSession(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, "at", s.AccessToken)
	require.Greater(t, s.TokenExpiresAt, time.Now().Add(time.Hour-time.Minute).Unix())

	srv.SetFailing(true)
	put(5, "at", "rt", time.Minute)
	refreshed, failed = j.RefreshExpiringSessions(ctx)
	require.Zero(t, refreshed)
	require.Equal(t, 1, failed)
}

func TestNew(t *testing.T) {
	_, err := New(Config{Timezone: "Mars/Olympus_Mons"}, nil, nil)
	require.Error(t, err)

	_, err = New(Config{RefreshSessionsCronExp: "not a cron"}, nil, nil)
	require.Error(t, err)

	j, err := New(Config{RefreshSessionsCronExp: "*/5 * * * *", Timezone: "UTC"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, j.horizon)
}
