package db

import (
	"errors"
	"slices"
)

// Session represents an end user's credentials and authorization data
// an empty AccessToken means the user is not authenticated (the record itself survives logout)
type Session struct {
	UserID          int64    `json:"-"`
	AccessToken     string   `json:"a,omitempty"`
	RefreshToken    string   `json:"r,omitempty"`
	IDToken         string   `json:"i,omitempty"`
	TokenExpiresAt  int64    `json:"e,omitempty"` // UNIX timestamp in seconds
	Scopes          []string `json:"s,omitempty"`
	Username        string   `json:"n,omitempty"`
	Accounts        []string `json:"ac,omitempty"`
	SelectedAccount string   `json:"sa,omitempty"`
	IsAdmin         bool     `json:"ad,omitempty"`
	CreatedAt       int64    `json:"c"`
	LastActiveAt    int64    `json:"la,omitempty"`
}

// Authenticated reports whether the session holds an access token
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// HasAccount reports whether the given account is among the session's authorized accounts
func (s Session) HasAccount(account string) bool {
	return slices.Contains(s.Accounts, account)
}

// ClearCredentials removes every credential while keeping identity and account data
func (s *Session) ClearCredentials() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.IDToken = ""
	s.TokenExpiresAt = 0
	s.Scopes = nil
}

// PendingLogin represents a started, not yet completed, login (OAuth authorization) attempt
type PendingLogin struct {
	State        string `json:"-"`
	UserID       int64  `json:"u"`
	ChatID       int64  `json:"c"`
	CodeVerifier string `json:"v"`
	CreatedAt    int64  `json:"t"`
}

// NotificationPreference represents whether a user wants to receive a type of event
type NotificationPreference struct {
	UserID    int64
	EventType string
	Enabled   bool
}

// errors
var (
	ErrPendingLoginNotFound = errors.New("db: pending login not found")
	ErrSessionNotFound      = errors.New("db: session not found")
	ErrConflict             = errors.New("db: too many concurrent writes")
)
