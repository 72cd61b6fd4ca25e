package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/telebot.v3"

	"MashinatoBot/internal/auth"
)

// sending options
var (
	sendHTMLMessageOption = &tb.SendOptions{ParseMode: tb.ModeHTML, DisableWebPagePreview: true}
)

// sendLoginPrompt replies the given text with a freshly generated login link button
func (b *Bot) sendLoginPrompt(c tb.Context, text string) error {
	authorizationURL, err := b.auth.BeginLogin(context.Background(), c.Sender().ID, c.Chat().ID)
	if err != nil {
		return err
	}

	markup := &tb.ReplyMarkup{}
	markup.Inline(markup.Row(markup.URL(b.locale.LoginButtonText, authorizationURL)))
	return c.Send(text, markup)
}

// menu returns the main menu keyboard
func (b *Bot) menu() *tb.ReplyMarkup {
	markup := &tb.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(markup.Text("/whoami"), markup.Text("/account")),
		markup.Row(markup.Text("/notifications"), markup.Text("/help")),
	)
	return markup
}

// NotifyLogin sends the outcome of a login to the chat it was started from
func (b *Bot) NotifyLogin(res auth.LoginResult, loginErr error) {
	if res.ChatID == 0 {
		return
	}
	chat := &tb.Chat{ID: res.ChatID}

	var err error
	switch {
	case loginErr != nil:
		_, err = b.Send(chat, b.locale.LoginFailedMessage)
	case res.Session.SelectedAccount == "":
		_, err = b.Send(chat, fmt.Sprintf(b.locale.LoginSucceededNoAccount, html.EscapeString(res.Session.Username)), sendHTMLMessageOption, b.menu())
	default:
		_, err = b.Send(chat, fmt.Sprintf(b.locale.LoginSucceededMessage,
			html.EscapeString(res.Session.Username), html.EscapeString(res.Session.SelectedAccount)), sendHTMLMessageOption, b.menu())
	}
	if err != nil {
		log.WithField("chat", res.ChatID).Errorf("failed to send login result: %v", err)
	}
}

// accountList formats the accounts, marking the selected one
func accountList(accounts []string, selected string) string {
	var sb strings.Builder
	for _, a := range accounts {
		if a == selected {
			fmt.Fprintf(&sb, "• <b>%s</b> ✓\n", html.EscapeString(a))
		} else {
			fmt.Fprintf(&sb, "• %s\n", html.EscapeString(a))
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
