package bot

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/telebot.v3"

	"MashinatoBot/internal/auth"
	"MashinatoBot/internal/db"
	"MashinatoBot/internal/locales"
)

// Config represents a configuration for Telegram bot
type Config struct {
	Token         string `toml:"token"`
	APIURL        string `toml:"API_URL,omitempty"` // custom Bot API server
	WebhookURL    string `toml:"webhook_URL,omitempty"`
	WebhookSecret string `toml:"webhook_secret,omitempty"`
	Language      string `toml:"language,omitempty"`
}

// Store is the storage of the users' notification preferences
type Store interface {
	GetNotificationPreferences(ctx context.Context, userID int64) ([]db.NotificationPreference, error)
	PutNotificationPreference(ctx context.Context, pref db.NotificationPreference) error
}

// Limiter rate limits users
type Limiter interface {
	BotUpdateAllowed(ctx context.Context, userID int64) bool
	LoginCommandAllowed(ctx context.Context, userID int64) bool
}

// Bot represents a Telegram bot
type Bot struct {
	*tb.Bot
	config  Config
	locale  *locales.Locale
	auth    *auth.Manager
	gate    *auth.Gate
	store   Store
	limiter Limiter // nil disables rate limiting
}

// public commands, they bypass the request gate
var publicEndpoints = []string{"/start", "/help", "/login"}

// New initializes the bot, without starting to receive updates
func New(config Config, manager *auth.Manager, store Store, limiter Limiter) (*Bot, error) {
	settings := tb.Settings{
		URL:         config.APIURL,
		Token:       config.Token,
		Synchronous: config.WebhookURL != "",          // for webhook mode
		Verbose:     log.GetLevel() >= log.TraceLevel, // for debugging only
		OnError: func(err error, c tb.Context) {
			log.Errorf("unhandled bot error: %v", err)
		},
	}
	if config.WebhookURL == "" {
		settings.Poller = &tb.LongPoller{Timeout: 10 * time.Second}
	}
	_b, err := tb.NewBot(settings)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		Bot:     _b,
		config:  config,
		locale:  locales.Get(config.Language),
		auth:    manager,
		gate:    auth.NewGate(manager, publicEndpoints...),
		store:   store,
		limiter: limiter,
	}

	// command handlers
	b.handle("/start", b.start)
	b.handle("/help", b.help)
	b.handle("/login", b.login)
	b.handle("/logout", b.logout)
	b.handle("/whoami", b.whoami)
	b.handle("/account", b.account)
	b.handle("/notifications", b.notifications)
	b.handle("/notify", b.notify)

	return b, nil
}

// Username returns the bot's username
func (b *Bot) Username() string {
	return b.Me.Username
}

// Locale returns the bot's locale
func (b *Bot) Locale() *locales.Locale {
	return b.locale
}

// Start sets the commands menu and starts receiving updates: through the webhook if configured, long polling otherwise.
// In webhook mode the updates must be fed to HandleUpdate.
func (b *Bot) Start() error {
	if err := b.SetCommands(b.locale.CommandsMenu); err != nil {
		log.Errorf("failed to set commands menu: %v", err)
	}

	if b.config.WebhookURL != "" {
		if err := b.SetWebhook(&tb.Webhook{
			Endpoint:    &tb.WebhookEndpoint{PublicURL: b.config.WebhookURL},
			SecretToken: b.config.WebhookSecret,
		}); err != nil {
			return err
		}
		log.Info("Bot OK (webhook)")
		return nil
	}

	if err := b.RemoveWebhook(); err != nil {
		return err
	}
	go b.Bot.Start()
	log.Info("Bot OK (long polling)")
	return nil
}

// Stop stops receiving updates
func (b *Bot) Stop() {
	if b.config.WebhookURL == "" {
		b.Bot.Stop()
	}
}

// HandleUpdate handles a Telegram bot Update received through the webhook
func (b *Bot) HandleUpdate(u tb.Update) {
	b.ProcessUpdate(u)
}

// WebhookSecret returns the secret token Telegram sends along webhook updates
func (b *Bot) WebhookSecret() string {
	return b.config.WebhookSecret
}
