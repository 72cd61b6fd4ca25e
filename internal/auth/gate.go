package auth

import (
	"context"
	"errors"

	"MashinatoBot/internal/db"
)

// State represents a state of the request gate
type State int

// states
const (
	StatePublicBypass State = iota
	StateNoSession
	StateNeedsRefresh
	StateFresh
	StateAuthenticated
	StateExpired
)

func (s State) String() string {
	switch s {
	case StatePublicBypass:
		return "PUBLIC_BYPASS"
	case StateNoSession:
		return "NO_SESSION"
	case StateNeedsRefresh:
		return "NEEDS_REFRESH"
	case StateFresh:
		return "FRESH"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Gate resolves the session of a user ahead of a protected interaction
type Gate struct {
	manager *Manager
	public  map[string]struct{}
}

// NewGate initializes a Gate, requests to any of the given public entry points bypass it
func NewGate(manager *Manager, public ...string) *Gate {
	g := &Gate{manager: manager, public: make(map[string]struct{}, len(public))}
	for _, p := range public {
		g.public[p] = struct{}{}
	}
	return g
}

// IsPublic reports whether the entry point is allow-listed
func (g *Gate) IsPublic(endpoint string) bool {
	_, ok := g.public[endpoint]
	return ok
}

// Check runs the gate for an interaction with the given entry point
func (g *Gate) Check(ctx context.Context, endpoint string, userID int64) (State, db.Session, error) {
	if g.IsPublic(endpoint) {
		return StatePublicBypass, db.Session{}, nil
	}
	return g.Resolve(ctx, userID)
}

// Resolve resolves the user's session to a terminal state: StateAuthenticated (the session is usable),
// StateNoSession or StateExpired (a new login is needed). A non-nil error means the store failed.
func (g *Gate) Resolve(ctx context.Context, userID int64) (State, db.Session, error) {
	session, err := g.manager.store.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			return StateNoSession, db.Session{}, nil
		}
		return StateNoSession, db.Session{}, err
	}
	if !session.Authenticated() {
		return StateNoSession, session, nil
	}

	if g.state(session) == StateNeedsRefresh {
		if !g.manager.Refresh(ctx, &session) {
			return StateExpired, session, nil
		}
	}
	return StateAuthenticated, session, nil
}

// state classifies an authenticated session by its expiry
func (g *Gate) state(session db.Session) State {
	if g.manager.expiresSoon(session) {
		return StateNeedsRefresh
	}
	return StateFresh
}
