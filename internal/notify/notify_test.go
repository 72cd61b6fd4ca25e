package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/telebot.v3"

	"MashinatoBot/internal/db"
	"MashinatoBot/internal/db/dbtest"
	"MashinatoBot/internal/events"
	"MashinatoBot/internal/locales"
)

// fakeSender records the recipients of sent messages, failing for the blocked ones and panicking for the broken ones
type fakeSender struct {
	mu      sync.Mutex
	sent    map[int64]string
	blocked map[int64]bool
	broken  map[int64]bool
}

func (f *fakeSender) Send(to tb.Recipient, what interface{}, opts ...interface{}) (*tb.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var userID int64
	if u, ok := to.(*tb.User); ok {
		userID = u.ID
	}
	if f.blocked[userID] {
		return nil, errors.New("telegram: Forbidden: bot was blocked by the user (403)")
	}
	if f.broken[userID] {
		panic("nil message")
	}
	if f.sent == nil {
		f.sent = make(map[int64]string)
	}
	f.sent[userID] = what.(string)
	return &tb.Message{}, nil
}

func (f *fakeSender) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id := range f.sent {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func seed(t *testing.T, store *db.Store, userID int64, accessToken string, accounts ...string) {
	t.Helper()
	_, err := store.UpdateSession(context.Background(), userID, func(s *db.Session, exists bool) error {
		s.AccessToken = accessToken
		s.Accounts = accounts
		return nil
	})
	require.NoError(t, err)
}

func TestRouter_Dispatch(t *testing.T) {
	store, _ := dbtest.New(t)
	ctx := context.Background()

	seed(t, store, 1, "at", "x")
	seed(t, store, 2, "at", "y")
	seed(t, store, 3, "at", "x", "y")
	seed(t, store, 4, "", "x") // logged out
	require.NoError(t, store.PutNotificationPreference(ctx, db.NotificationPreference{UserID: 3, EventType: "search.completed", Enabled: false}))
	require.NoError(t, store.PutNotificationPreference(ctx, db.NotificationPreference{UserID: 2, EventType: "search.started", Enabled: false}))
	require.NoError(t, store.PutNotificationPreference(ctx, db.NotificationPreference{UserID: 1, EventType: "rental.booked", Enabled: true}))

	tests := []struct {
		name       string
		body       string
		want       []int64
		wantReport Report
	}{
		{
			name:       "account visibility",
			body:       `{"type":"rental.booked","data":{"account":"x"}}`,
			want:       []int64{1, 3},
			wantReport: Report{Candidates: 3, Delivered: 2, Skipped: 1},
		},
		{
			name:       "account visibility and disabled preference",
			body:       `{"type":"search.completed","data":{"account":"x"}}`,
			want:       []int64{1},
			wantReport: Report{Candidates: 3, Delivered: 1, Skipped: 2},
		},
		{
			name:       "disabled preference without account",
			body:       `{"type":"search.started","data":{}}`,
			want:       []int64{1, 3},
			wantReport: Report{Candidates: 3, Delivered: 2, Skipped: 1},
		},
		{
			name:       "enabled preference does not override account",
			body:       `{"type":"rental.booked","data":{"account":"y"}}`,
			want:       []int64{2, 3},
			wantReport: Report{Candidates: 3, Delivered: 2, Skipped: 1},
		},
		{
			name:       "account nobody has",
			body:       `{"type":"rental.booked","data":{"account":"z"}}`,
			want:       nil,
			wantReport: Report{Candidates: 3, Skipped: 3},
		},
		{
			name:       "nothing to render",
			body:       ``,
			want:       nil,
			wantReport: Report{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			r := NewRouter(store, sender, locales.Get("en"), 2)

			report, err := r.Dispatch(ctx, events.Parse([]byte(tt.body)))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, sender.recipients()); diff != "" {
				t.Errorf("recipients mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, tt.wantReport, report)
		})
	}
}

func TestRouter_Dispatch_DeliveryFailureDoesNotAbort(t *testing.T) {
	store, _ := dbtest.New(t)
	for id := int64(1); id <= 5; id++ {
		seed(t, store, id, "at", "x")
	}

	sender := &fakeSender{blocked: map[int64]bool{2: true, 4: true}}
	report, err := NewRouter(store, sender, locales.Get("en"), 0).Dispatch(context.Background(), events.Parse([]byte(`{"type":"search.started","data":{"account":"x"}}`)))
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3, 5}, sender.recipients())
	require.Equal(t, Report{Candidates: 5, Delivered: 3, Failed: 2}, report)
	require.Equal(t, "🔍 Search started\nAccount: x", sender.sent[1])
}

func TestRouter_Dispatch_AliasUsesCanonicalPreference(t *testing.T) {
	store, _ := dbtest.New(t)
	ctx := context.Background()
	seed(t, store, 1, "at", "z")
	seed(t, store, 2, "at", "z")
	require.NoError(t, store.PutNotificationPreference(ctx, db.NotificationPreference{UserID: 1, EventType: "rental.booked", Enabled: false}))

	sender := &fakeSender{}
	report, err := NewRouter(store, sender, locales.Get("en"), 2).Dispatch(ctx, events.Parse([]byte(`{"event":"rental.created","payload":{"account":"z"}}`)))
	require.NoError(t, err)
	require.Equal(t, []int64{2}, sender.recipients())
	require.Equal(t, Report{Candidates: 2, Delivered: 1, Skipped: 1}, report)
}

func TestRouter_Dispatch_DeliveryPanicIsContained(t *testing.T) {
	store, _ := dbtest.New(t)
	for id := int64(1); id <= 3; id++ {
		seed(t, store, id, "at", "x")
	}

	sender := &fakeSender{broken: map[int64]bool{2: true}}
	report, err := NewRouter(store, sender, locales.Get("en"), 2).Dispatch(context.Background(), events.Parse([]byte(`{"type":"search.started","data":{"account":"x"}}`)))
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, sender.recipients())
	require.Equal(t, Report{Candidates: 3, Delivered: 2, Failed: 1}, report)
}
