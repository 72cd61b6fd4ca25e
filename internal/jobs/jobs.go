package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"MashinatoBot/internal/db"
	"MashinatoBot/pkg/duration"
)

// Config represents a configuration for the jobs
type Config struct {
	RefreshSessionsCronExp string            `toml:"refresh_sessions_cron,omitempty"`
	RefreshHorizon         duration.Duration `toml:"refresh_horizon,omitempty"`
	Timezone               string            `toml:"timezone,omitempty"`
}

const defaultRefreshHorizon = 10 * time.Minute

// SessionStore is the storage the jobs read sessions from
type SessionStore interface {
	GetAuthenticatedSessions(ctx context.Context) ([]db.Session, error)
}

// Refresher refreshes the credentials of a session
type Refresher interface {
	Refresh(ctx context.Context, session *db.Session) bool
}

// Jobs represents the scheduled jobs
type Jobs struct {
	scheduler *gocron.Scheduler
	store     SessionStore
	refresher Refresher
	horizon   time.Duration
}

// New initializes the jobs, a zero config schedules nothing
func New(config Config, store SessionStore, refresher Refresher) (*Jobs, error) {
	location := time.UTC
	if config.Timezone != "" {
		var err error
		if location, err = time.LoadLocation(config.Timezone); err != nil {
			return nil, err
		}
	}
	if config.RefreshHorizon.Duration <= 0 {
		config.RefreshHorizon = duration.Of(defaultRefreshHorizon)
	}

	j := &Jobs{
		scheduler: gocron.NewScheduler(location),
		store:     store,
		refresher: refresher,
		horizon:   config.RefreshHorizon.Duration,
	}
	j.scheduler.SetMaxConcurrentJobs(1, gocron.RescheduleMode)

	if config.RefreshSessionsCronExp != "" {
		_, err := j.scheduler.Cron(config.RefreshSessionsCronExp).Tag("RefreshExpiringSessions").Do(func() {
			j.RefreshExpiringSessions(context.Background())
		})
		if err != nil {
			return nil, err
		}
	}
	return j, nil
}

// Start starts the scheduler
func (j *Jobs) Start() {
	j.scheduler.StartAsync()
}

// Stop stops the scheduler, waiting for running jobs
func (j *Jobs) Stop() {
	j.scheduler.Stop()
}
