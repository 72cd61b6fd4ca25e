package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/telebot.v3"

	"MashinatoBot/internal/auth"
	"MashinatoBot/internal/db"
	"MashinatoBot/internal/events"
)

// on command `/start`
// start replies a welcome message pointing to `/login`
func (b *Bot) start(c tb.Context) error {
	return c.Send(b.locale.StartMessage)
}

// on command `/help`
func (b *Bot) help(c tb.Context) error {
	return c.Send(b.locale.HelpMessage, sendHTMLMessageOption)
}

// on command `/login`
// login replies a login link message for the user, unless they're already logged-in
func (b *Bot) login(c tb.Context) error {
	userID := c.Sender().ID
	if b.limiter != nil && !b.limiter.LoginCommandAllowed(context.Background(), userID) {
		log.WithField("UID", userID).Info("login command rate limited")
		return c.Send(b.locale.TooManyRequestsMessage, sendHTMLMessageOption)
	}

	state, _, err := b.gate.Resolve(context.Background(), userID)
	if err != nil {
		return err
	}
	if state == auth.StateAuthenticated {
		return c.Send(b.locale.AlreadyLoggedInMessage)
	}
	return b.sendLoginPrompt(c, b.locale.LoginPromptMessage)
}

// on command `/logout`
// logout clears the user's credentials
func (b *Bot) logout(c tb.Context) error {
	err := b.auth.Logout(context.Background(), c.Sender().ID)
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return c.Send(b.locale.NotLoggedInMessage)
	}
	if err != nil {
		return err
	}
	return c.Send(b.locale.LogoutSucceededMessage, &tb.ReplyMarkup{RemoveKeyboard: true})
}

// on command `/whoami`
// whoami replies the user's identity and accounts
func (b *Bot) whoami(c tb.Context) error {
	s := sessionOf(c)

	accounts := b.locale.NoAccountsMessage
	if len(s.Accounts) != 0 {
		accounts = html.EscapeString(strings.Join(s.Accounts, ", "))
	}
	selected := s.SelectedAccount
	if selected == "" {
		selected = b.locale.Unknown
	}
	admin := b.locale.No
	if s.IsAdmin {
		admin = b.locale.Yes
	}

	return c.Send(fmt.Sprintf(b.locale.WhoAmIMessage, html.EscapeString(s.Username), accounts, html.EscapeString(selected), admin),
		sendHTMLMessageOption)
}

// on command `/account [name]`
// account lists the user's accounts, or switches the active one to the given name
func (b *Bot) account(c tb.Context) error {
	s := sessionOf(c)

	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		if len(s.Accounts) == 0 {
			return c.Send(b.locale.NoAccountsMessage, sendHTMLMessageOption)
		}
		return c.Send(b.locale.AccountListHeader+"\n\n"+accountList(s.Accounts, s.SelectedAccount), sendHTMLMessageOption)
	}

	_, err := b.auth.SelectAccount(context.Background(), s.UserID, name)
	if errors.Is(err, auth.ErrAccountNotAuthorized) {
		return c.Send(b.locale.AccountNotAuthorizedMessage)
	}
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf(b.locale.AccountSelectedMessage, html.EscapeString(name)), sendHTMLMessageOption)
}

// on command `/notifications`
// notifications replies the user's notification settings of every event type
func (b *Bot) notifications(c tb.Context) error {
	s := sessionOf(c)
	prefs, err := b.store.GetNotificationPreferences(context.Background(), s.UserID)
	if err != nil {
		return err
	}
	disabled := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		disabled[p.EventType] = !p.Enabled
	}

	var sb strings.Builder
	sb.WriteString(b.locale.NotificationsHeader + "\n\n")
	for _, t := range events.Types() {
		mark := "🔔"
		if disabled[t] {
			mark = "🔕"
		}
		fmt.Fprintf(&sb, "%s <code>%s</code>\n", mark, t)
	}
	sb.WriteString("\n" + b.locale.NotificationsUsage)
	return c.Send(sb.String(), sendHTMLMessageOption)
}

// on command `/notify <type> on|off`
// notify enables or disables the notifications of the given event type
func (b *Bot) notify(c tb.Context) error {
	args := c.Args()
	if len(args) != 2 || !slices.Contains(events.Types(), args[0]) || (args[1] != "on" && args[1] != "off") {
		return c.Send(b.locale.NotificationsUsage, sendHTMLMessageOption)
	}

	pref := db.NotificationPreference{
		UserID:    sessionOf(c).UserID,
		EventType: args[0],
		Enabled:   args[1] == "on",
	}
	if err := b.store.PutNotificationPreference(context.Background(), pref); err != nil {
		return err
	}

	message := b.locale.NotificationDisabledMessage
	if pref.Enabled {
		message = b.locale.NotificationEnabledMessage
	}
	return c.Send(fmt.Sprintf(message, pref.EventType), sendHTMLMessageOption)
}
