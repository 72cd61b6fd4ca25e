/*
Package events implements the inbound backend events: envelope parsing, webhook signatures and rendering
into chat messages.

The canonical envelope is

	{"id": "evt_...", "type": "search.completed", "timestamp": "...", "data": {"account": "...", ...}}

The alternate `event` / `payload` keys are accepted at ingestion with a fixed precedence: `type` wins over
`event` (and `event_type`), `data` wins over `payload`. An envelope with neither is its own data.
*/
package events

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event represents an inbound backend event
type Event struct {
	ID        string
	Type      string // as received, "unknown" if absent
	Kind      Kind
	Timestamp time.Time // zero if absent or unparsable
	Account   string    // account discriminator, empty if the event isn't account-specific
	Data      map[string]interface{}
	Raw       []byte // body of a malformed event
}

// Malformed reports whether the event couldn't be parsed as an envelope
func (e Event) Malformed() bool {
	return e.Data == nil && len(e.Raw) != 0
}

// CanonicalType returns the canonical event type of a known kind (aliases resolved), the received type otherwise.
// Notification preferences are keyed by it.
func (e Event) CanonicalType() string {
	if e.Kind != KindUnknown {
		return e.Kind.String()
	}
	return e.Type
}

// Parse parses a request body into an Event, it never fails: malformed bodies become unknown events carrying the raw body
func Parse(body []byte) Event {
	var envelope map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(body))
	d.UseNumber()
	if err := d.Decode(&envelope); err != nil || envelope == nil {
		return Event{
			ID:   uuid.NewString(),
			Type: KindUnknown.String(),
			Kind: KindUnknown,
			Raw:  body,
		}
	}

	e := Event{
		ID:        stringField(envelope, "id"),
		Type:      stringField(envelope, "type", "event", "event_type"),
		Timestamp: timeField(envelope["timestamp"]),
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Type == "" {
		e.Type = KindUnknown.String()
	}
	e.Kind = ParseKind(e.Type)

	e.Data = objectField(envelope, "data", "payload")
	if e.Data == nil {
		e.Data = envelope
	}
	e.Account = stringField(e.Data, "account")
	if e.Account == "" {
		e.Account = stringField(envelope, "account", "account_name")
	}
	return e
}

// stringField returns the first non-empty string (or number) among the given keys
func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// objectField returns the first object among the given keys
func objectField(m map[string]interface{}, keys ...string) map[string]interface{} {
	for _, k := range keys {
		if o, ok := m[k].(map[string]interface{}); ok {
			return o
		}
	}
	return nil
}

// timeField parses an RFC 3339 string or a UNIX timestamp in seconds
func timeField(v interface{}) time.Time {
	switch v := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(sec, 0)
		}
	case json.Number:
		if sec, err := v.Int64(); err == nil {
			return time.Unix(sec, 0)
		}
	}
	return time.Time{}
}
