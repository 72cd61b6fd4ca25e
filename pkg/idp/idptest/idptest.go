// Package idptest provides a fake identity provider token endpoint for tests.
package idptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"MashinatoBot/pkg/duration"
	"MashinatoBot/pkg/idp"
)

// Server is a fake identity provider serving `/token` and `/revoke`
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	username  string
	groups    []string
	expiresIn int
	rotate    bool
	failing   bool
	delay     time.Duration
	calls     map[string]int // by grant type, plus "revoke"
	lastForm  url.Values
	serial    int
}

// NewServer starts a Server closed when the test ends
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		username:  "amin",
		expiresIn: 3600,
		calls:     make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("POST /revoke", s.handleRevoke)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Config returns a provider configuration pointing at the server
func (s *Server) Config() idp.Config {
	return idp.Config{
		ClientID:     "mashinato-bot",
		ClientSecret: "shh",
		AuthorizeURL: s.URL + "/authorize",
		TokenURL:     s.URL + "/token",
		RevokeURL:    s.URL + "/revoke",
		RedirectURI:  "https://bot.example.com/oauth/callback",
		Timeout:      duration.Of(5 * time.Second),
	}
}

// SetIdentity sets the claims put into issued ID tokens
func (s *Server) SetIdentity(username string, groups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.groups = username, groups
}

// SetExpiresIn sets the lifetime of issued access tokens in seconds
func (s *Server) SetExpiresIn(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresIn = seconds
}

// SetRotate sets whether refresh_token grants return a new refresh token
func (s *Server) SetRotate(rotate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate = rotate
}

// SetFailing makes every token request fail with `invalid_grant`
func (s *Server) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// SetDelay delays every token response
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns how many requests of the given grant type (or "revoke") were received
func (s *Server) Calls(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// LastForm returns the form of the last token request
func (s *Server) LastForm() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastForm
}

// IDToken returns a signed ID token carrying the given claims
func IDToken(username string, groups []string) string {
	claims := jwt.MapClaims{"sub": "sub-" + username, "iss": "idptest"}
	if username != "" {
		claims["preferred_username"] = username
	}
	if groups != nil {
		claims["groups"] = groups
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("idptest"))
	return token
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	grantType := r.PostForm.Get("grant_type")
	s.calls[grantType]++
	s.lastForm = r.PostForm
	s.serial++
	n := s.serial
	failing, delay, rotate := s.failing, s.delay, s.rotate
	username, groups, expiresIn := s.username, s.groups, s.expiresIn
	s.mu.Unlock()

	time.Sleep(delay)

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}

	res := map[string]interface{}{
		"access_token": fmt.Sprintf("at-%d", n),
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"scope":        "openid profile email groups offline_access",
	}
	switch grantType {
	case "authorization_code":
		res["refresh_token"] = fmt.Sprintf("rt-%d", n)
		res["id_token"] = IDToken(username, groups)
	case "refresh_token":
		if rotate {
			res["refresh_token"] = fmt.Sprintf("rt-%d", n)
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unsupported_grant_type"})
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls["revoke"]++
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}
