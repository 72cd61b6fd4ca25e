package bot

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/telebot.v3"

	"MashinatoBot/internal/auth"
	"MashinatoBot/internal/db"
)

// context keys
const (
	keySession = "session"
	keyAccount = "account"
)

// handle registers the handler on the endpoint behind the middlewares
func (b *Bot) handle(endpoint string, h tb.HandlerFunc) {
	b.Handle(endpoint, b.recoverErrors(b.rateLimit(b.authorize(endpoint, h))))
}

// recoverErrors intercepts and logs the error returned by (or the panic of) the next handler, replying a generic error
func (b *Bot) recoverErrors(next tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			if err != nil {
				log.WithField("UID", c.Sender().ID).Error(err)
				if sendErr := c.Send(b.locale.InternalErrorMessage, tb.ModeHTML); sendErr != nil {
					log.Error(sendErr)
				}
				err = nil
			}
		}()

		return next(c)
	}
}

// rateLimit drops updates of users exceeding the rate limit
func (b *Bot) rateLimit(next tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) error {
		if b.limiter != nil && !b.limiter.BotUpdateAllowed(context.Background(), c.Sender().ID) {
			log.WithField("UID", c.Sender().ID).Info("bot update rate limited")
			return nil
		}
		return next(c)
	}
}

// authorize runs the request gate ahead of the next handler: users without a usable session get a login prompt
// instead, the session and selected account are attached to the context otherwise
func (b *Bot) authorize(endpoint string, next tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) error {
		userID := c.Sender().ID
		state, session, err := b.gate.Check(context.Background(), endpoint, userID)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"UID": userID, "state": state}).Debugf("gate passed for %s", endpoint)

		switch state {
		case auth.StatePublicBypass:
			return next(c)
		case auth.StateNoSession:
			return b.sendLoginPrompt(c, b.locale.LoginPromptMessage)
		case auth.StateExpired:
			return b.sendLoginPrompt(c, b.locale.LoginExpiredMessage)
		case auth.StateAuthenticated:
			c.Set(keySession, session)
			c.Set(keyAccount, session.SelectedAccount)
			return next(c)
		default:
			return fmt.Errorf("bot: unexpected gate state %s", state)
		}
	}
}

// sessionOf returns the session attached by the request gate
func sessionOf(c tb.Context) db.Session {
	s, _ := c.Get(keySession).(db.Session)
	return s
}
