package jobs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// RefreshExpiringSessions refreshes the sessions whose access token expires within the horizon,
// keeping the refresh tokens of idle users alive
func (j *Jobs) RefreshExpiringSessions(ctx context.Context) (refreshed, failed int) {
	logger := log.WithField("job", "RefreshExpiringSessions")

	start := time.Now()
	sessions, err := j.store.GetAuthenticatedSessions(ctx)
	if err != nil {
		logger.Errorf("failed to get sessions: %v", err)
		return
	}

	deadline := time.Now().Add(j.horizon).Unix()
	for i := range sessions {
		s := &sessions[i]
		if s.RefreshToken == "" || s.TokenExpiresAt > deadline {
			continue
		}
		if j.refresher.Refresh(ctx, s) {
			refreshed++
		} else {
			failed++
			logger.WithField("UID", s.UserID).Warn("failed to refresh session")
		}
	}
	logger.Infof("refreshed %d of %d sessions (%d failed) in %v", refreshed, len(sessions), failed, time.Since(start))
	return
}
