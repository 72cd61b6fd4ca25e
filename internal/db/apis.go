package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// key names
const (
	keyAuthenticatedUsers = "a" // set of IDs of users currently holding an access token
)

// key name prefixes
const (
	keyPrefixPendingLogin           = "l"
	keyPrefixSession                = "u"
	keyPrefixNotificationPreference = "p"
)

// key expirations
const (
	defaultTTLPendingLogin = 10 * time.Minute
	ttlSession             = 0 * time.Second // no expiration
)

const maxTxRetries = 8

func pendingLoginKey(state string) string {
	return fmt.Sprintf("%s:%s", keyPrefixPendingLogin, state)
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("%s:%d", keyPrefixSession, userID)
}

func notificationPreferenceKey(userID int64) string {
	return fmt.Sprintf("%s:%d", keyPrefixNotificationPreference, userID)
}

// PutPendingLogin puts the given pending login, it expires after the configured TTL
func (s *Store) PutPendingLogin(ctx context.Context, p PendingLogin) error {
	value, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, pendingLoginKey(p.State), value, s.ttlPendingLogin).Err()
}

// ConsumePendingLogin gets and deletes the pending login with the given state in one atomic step,
// so a state can be consumed at most once even under duplicate deliveries of the same callback
func (s *Store) ConsumePendingLogin(ctx context.Context, state string) (PendingLogin, error) {
	value, err := s.rdb.GetDel(ctx, pendingLoginKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = ErrPendingLoginNotFound
		}
		return PendingLogin{}, err
	}

	var p PendingLogin
	if err = json.Unmarshal([]byte(value), &p); err != nil {
		return PendingLogin{}, fmt.Errorf("db: corrupted pending login: %w", err)
	}
	p.State = state
	if p.CreatedAt != 0 && time.Since(time.Unix(p.CreatedAt, 0)) > s.ttlPendingLogin {
		return PendingLogin{}, ErrPendingLoginNotFound // key outlived its TTL
	}
	return p, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getSession(ctx context.Context, c getter, userID int64) (Session, error) {
	value, err := c.Get(ctx, sessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = ErrSessionNotFound
		}
		return Session{}, err
	}

	var session Session
	if err = json.Unmarshal([]byte(value), &session); err != nil {
		return Session{}, fmt.Errorf("db: corrupted session of user %d: %w", userID, err)
	}
	session.UserID = userID
	return session, nil
}

// GetSession gets the session of the user with the given ID
func (s *Store) GetSession(ctx context.Context, userID int64) (Session, error) {
	return getSession(ctx, s.rdb, userID)
}

// UpdateSession applies fn to the user's current session and writes the result back atomically.
// Concurrent writers of the same user are serialized with WATCH/MULTI: a conflicting write makes
// this one re-read and re-apply fn. If fn returns an error nothing is written.
// The authenticated users index is kept consistent in the same transaction.
func (s *Store) UpdateSession(ctx context.Context, userID int64, fn func(session *Session, exists bool) error) (Session, error) {
	key := sessionKey(userID)
	var updated Session

	txf := func(tx *redis.Tx) error {
		session, err := getSession(ctx, tx, userID)
		exists := err == nil
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return err
		}
		if !exists {
			session = Session{UserID: userID}
		}

		if err = fn(&session, exists); err != nil {
			return err
		}
		session.UserID = userID

		value, err := json.Marshal(session)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, ttlSession)
			if session.Authenticated() {
				pipe.SAdd(ctx, keyAuthenticatedUsers, userID)
			} else {
				pipe.SRem(ctx, keyAuthenticatedUsers, userID)
			}
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // someone else wrote the session in between, retry
		}
		return Session{}, err
	}
	return Session{}, ErrConflict
}

// GetAuthenticatedSessions gets the sessions of all users currently holding an access token
func (s *Store) GetAuthenticatedSessions(ctx context.Context) ([]Session, error) {
	members, err := s.rdb.SMembers(ctx, keyAuthenticatedUsers).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	userIDs := make([]int64, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		userID, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		userIDs = append(userIDs, userID)
		keys = append(keys, sessionKey(userID))
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok { // deleted in between
			continue
		}
		var session Session
		if err = json.Unmarshal([]byte(raw), &session); err != nil {
			continue
		}
		session.UserID = userIDs[i]
		if session.Authenticated() {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// GetNotificationPreference gets the user's preference for the given event type
// found is false when the user never set one
func (s *Store) GetNotificationPreference(ctx context.Context, userID int64, eventType string) (pref NotificationPreference, found bool, err error) {
	pref = NotificationPreference{UserID: userID, EventType: eventType, Enabled: true}
	value, err := s.rdb.HGet(ctx, notificationPreferenceKey(userID), eventType).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		return
	}

	found = true
	pref.Enabled = value != "0"
	return
}

// GetNotificationPreferences gets all the preferences the user has explicitly set, sorted by event type
func (s *Store) GetNotificationPreferences(ctx context.Context, userID int64) ([]NotificationPreference, error) {
	values, err := s.rdb.HGetAll(ctx, notificationPreferenceKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	prefs := make([]NotificationPreference, 0, len(values))
	for eventType, value := range values {
		prefs = append(prefs, NotificationPreference{UserID: userID, EventType: eventType, Enabled: value != "0"})
	}
	sort.Slice(prefs, func(i, j int) bool {
		return prefs[i].EventType < prefs[j].EventType
	})
	return prefs, nil
}

// PutNotificationPreference puts the given preference
func (s *Store) PutNotificationPreference(ctx context.Context, pref NotificationPreference) error {
	value := "0"
	if pref.Enabled {
		value = "1"
	}
	return s.rdb.HSet(ctx, notificationPreferenceKey(pref.UserID), pref.EventType, value).Err()
}
