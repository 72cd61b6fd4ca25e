package auth

import (
	"slices"
	"strings"
	"time"

	"MashinatoBot/internal/db"
)

// DeriveAccounts maps every `<prefix>:<account>` group to an account, skipping the reserved admin group.
// The result has no duplicates and keeps the first-seen order.
func DeriveAccounts(groups []string, prefix, adminGroup string) []string {
	p := prefix + ":"
	var accounts []string
	for _, g := range groups {
		account, ok := strings.CutPrefix(g, p)
		if !ok || account == "" || account == adminGroup {
			continue
		}
		if !slices.Contains(accounts, account) {
			accounts = append(accounts, account)
		}
	}
	return accounts
}

// IsAdmin reports whether the reserved admin group, bare or prefixed, is among the groups
func IsAdmin(groups []string, prefix, adminGroup string) bool {
	if adminGroup == "" {
		return false
	}
	return slices.Contains(groups, adminGroup) || slices.Contains(groups, prefix+":"+adminGroup)
}

// Incoming represents the credentials and identity obtained by a fresh login
type Incoming struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    int64
	Scopes       []string
	Username     string
	Accounts     []string
	IsAdmin      bool
}

// Reconcile merges a fresh login into the existing session (nil if the user has none).
// Credentials, identity and accounts are taken from the login; the selected account is kept
// if it's still authorized, otherwise the first authorized account (if any) gets selected.
func Reconcile(existing *db.Session, in Incoming, now time.Time) db.Session {
	s := db.Session{
		AccessToken:    in.AccessToken,
		RefreshToken:   in.RefreshToken,
		IDToken:        in.IDToken,
		TokenExpiresAt: in.ExpiresAt,
		Scopes:         in.Scopes,
		Username:       in.Username,
		Accounts:       in.Accounts,
		IsAdmin:        in.IsAdmin,
		CreatedAt:      now.Unix(),
		LastActiveAt:   now.Unix(),
	}

	if existing != nil {
		s.UserID = existing.UserID
		if existing.CreatedAt != 0 {
			s.CreatedAt = existing.CreatedAt
		}
		if slices.Contains(in.Accounts, existing.SelectedAccount) {
			s.SelectedAccount = existing.SelectedAccount
		}
	}
	if s.SelectedAccount == "" && len(in.Accounts) > 0 {
		s.SelectedAccount = in.Accounts[0]
	}
	return s
}
