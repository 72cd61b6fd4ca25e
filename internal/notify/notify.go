/*
Package notify routes inbound backend events to the users who may and want to see them.
*/
package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	tb "gopkg.in/telebot.v3"

	"MashinatoBot/internal/db"
	"MashinatoBot/internal/events"
	"MashinatoBot/internal/locales"
)

// defaultConcurrency is the default number of parallel deliveries of a dispatch
const defaultConcurrency = 8

// Store is the storage the router reads recipients and preferences from
type Store interface {
	GetAuthenticatedSessions(ctx context.Context) ([]db.Session, error)
	GetNotificationPreference(ctx context.Context, userID int64, eventType string) (db.NotificationPreference, bool, error)
}

// Sender sends messages, *tb.Bot satisfies it
type Sender interface {
	Send(to tb.Recipient, what interface{}, opts ...interface{}) (*tb.Message, error)
}

// Report represents the outcome of a dispatch
type Report struct {
	Candidates int // authenticated users
	Delivered  int
	Skipped    int // not visible to or not wanted by the user
	Failed     int
}

// Router dispatches events to users
type Router struct {
	store       Store
	sender      Sender
	locale      *locales.Locale
	concurrency int
}

// NewRouter initializes a Router rendering messages with the given locale, a concurrency <= 0 means the default
func NewRouter(store Store, sender Sender, locale *locales.Locale, concurrency int) *Router {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Router{
		store:       store,
		sender:      sender,
		locale:      locale,
		concurrency: concurrency,
	}
}

// Dispatch renders the event and delivers it to every authenticated user who may see it and hasn't disabled its type.
// Delivery is best-effort: a failure for one recipient is logged and doesn't affect the others.
// The returned error is only about finding the recipients.
func (r *Router) Dispatch(ctx context.Context, e events.Event) (Report, error) {
	logger := log.WithFields(log.Fields{"event": e.ID, "type": e.Type})

	message := events.Render(e, r.locale)
	if message == "" {
		logger.Debug("nothing to render")
		return Report{}, nil
	}

	sessions, err := r.store.GetAuthenticatedSessions(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("notify: failed to get recipients: %w", err)
	}

	var delivered, skipped, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					logger.WithField("UID", s.UserID).Errorf("panic while delivering notification: %v", p)
					atomic.AddInt64(&failed, 1)
				}
			}()

			if !r.wants(gctx, s, e) {
				atomic.AddInt64(&skipped, 1)
				return nil
			}
			if _, err := r.sender.Send(&tb.User{ID: s.UserID}, message, tb.ModeHTML, tb.NoPreview); err != nil {
				logger.WithField("UID", s.UserID).Warnf("failed to deliver notification: %v", err)
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&delivered, 1)
			return nil
		})
	}
	_ = g.Wait() // deliveries never fail the group

	report := Report{
		Candidates: len(sessions),
		Delivered:  int(delivered),
		Skipped:    int(skipped),
		Failed:     int(failed),
	}
	logger.WithField("report", fmt.Sprintf("%+v", report)).Info("event dispatched")
	return report, nil
}

// wants reports whether the event should be delivered to the session's user
func (r *Router) wants(ctx context.Context, s db.Session, e events.Event) bool {
	if e.Account != "" && !s.HasAccount(e.Account) {
		return false
	}

	pref, _, err := r.store.GetNotificationPreference(ctx, s.UserID, e.CanonicalType())
	if err != nil {
		log.WithField("UID", s.UserID).Errorf("failed to get notification preference: %v", err)
		return true // absent preference means enabled
	}
	return pref.Enabled
}
