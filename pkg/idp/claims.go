package idp

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity claims the bot cares about
type Claims struct {
	Username string
	Groups   []string
}

// ParseClaims decodes the claims of the given ID token without verifying its signature
// (it was received directly from the token endpoint over TLS). The token is still treated as
// untrusted input: missing or malformed fields yield zero values, never an error.
func ParseClaims(idToken string) (c Claims) {
	if idToken == "" {
		return
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, mc); err != nil {
		return
	}

	if s, ok := mc["preferred_username"].(string); ok && s != "" {
		c.Username = s
	} else if s, ok = mc["sub"].(string); ok {
		c.Username = s
	}

	switch groups := mc["groups"].(type) {
	case []interface{}:
		for _, g := range groups {
			if s, ok := g.(string); ok && s != "" {
				c.Groups = append(c.Groups, s)
			}
		}
	case string: // some providers flatten single-valued claims
		if groups != "" {
			c.Groups = []string{groups}
		}
	}
	return
}
