package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"

	"MashinatoBot/internal/auth"
	"MashinatoBot/internal/bot"
	"MashinatoBot/internal/db"
	"MashinatoBot/internal/jobs"
	"MashinatoBot/pkg/duration"
	"MashinatoBot/pkg/idp"
)

// Config represents a complete configuration
type Config struct {
	Host        string        `toml:"host,omitempty"`
	Port        uint16        `toml:"port,omitempty"`
	Log         LogConfig     `toml:"log,omitempty"`
	TLS         TLSConfig     `toml:"tls,omitempty"`
	Redis       db.Config     `toml:"redis"`
	TelegramBot bot.Config    `toml:"telegram_bot"`
	OAuth       idp.Config    `toml:"oauth"`
	Auth        auth.Config   `toml:"auth,omitempty"`
	Webhook     WebhookConfig `toml:"webhook,omitempty"`
	JobsConfig  jobs.Config   `toml:"jobs,omitempty"`

	TelegramBotWebhookPath string `toml:"-"`
	OAuthRedirectPath      string `toml:"-"`
}

// LogConfig represents a configuration for the global logger
type LogConfig struct {
	Level string `toml:"level,omitempty"`
	Path  string `toml:"path,omitempty"`
}

// TLSConfig represents a configuration for TLS of the HTTP server
type TLSConfig struct {
	ServerName      string `toml:"server_name,omitempty"`
	CertificatePath string `toml:"certificate_path,omitempty"`
	PrivateKeyPath  string `toml:"private_key_path,omitempty"`
}

// WebhookConfig represents a configuration for the backend event push endpoint
type WebhookConfig struct {
	Path        string            `toml:"path,omitempty"`
	Secret      string            `toml:"secret,omitempty"`   // signature checking is skipped if empty
	MaxSkew     duration.Duration `toml:"max_skew,omitempty"` // 0 disables the timestamp tolerance check
	MaxBodySize int64             `toml:"max_body_size,omitempty"`
	Concurrency int               `toml:"concurrency,omitempty"` // parallel deliveries of a dispatch
}

const defaultWebhookPath = "/webhook"

// environment variables overriding the secrets of the config file
const (
	envBotToken          = "BOT_TOKEN"
	envOAuthClientSecret = "OAUTH_CLIENT_SECRET"
	envWebhookSecret     = "WEBHOOK_SECRET"
	envRedisPassword     = "REDIS_PASSWORD"
)

// LoadConfig loads a configuration from the given file, and the secrets from the environment (or a `.env` file)
func LoadConfig(path string) Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env file: %v", err)
	}

	f, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}
	c, err := parseConfig(f)
	if err != nil {
		log.Fatal(err)
	}

	c.setupLogger()
	return c
}

// parseConfig decodes a configuration and fills in its defaults
func parseConfig(data []byte) (c Config, err error) {
	if err = toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to parse config file: %v", err)
	}

	c.overrideFromEnv()
	if err = c.setupHTTPServer(); err != nil {
		return c, err
	}
	if c.TelegramBot.Token == "" {
		return c, fmt.Errorf("missing Telegram bot token (`token` or $%s) in config", envBotToken)
	}
	return c, nil
}

// overrideFromEnv overrides the secrets with the non-empty environment variables
func (c *Config) overrideFromEnv() {
	for env, field := range map[string]*string{
		envBotToken:          &c.TelegramBot.Token,
		envOAuthClientSecret: &c.OAuth.ClientSecret,
		envWebhookSecret:     &c.Webhook.Secret,
		envRedisPassword:     &c.Redis.Password,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

// setupLogger sets up the global logger configuration
func (c *Config) setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}
	log.SetLevel(level)
	log.Debugf("log level set to %s", strings.ToUpper(level.String()))
	if level >= log.DebugLevel {
		log.SetReportCaller(true)
	}

	if c.Log.Path != "" {
		f, err := os.OpenFile(c.Log.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
}

// setupHTTPServer sets up the HTTP server configuration
func (c *Config) setupHTTPServer() error {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Webhook.Path == "" {
		c.Webhook.Path = defaultWebhookPath
	}
	if c.Webhook.MaxBodySize <= 0 {
		c.Webhook.MaxBodySize = defaultMaxBodySize
	}

	if err := c.setupRoutingPaths(); err != nil {
		return fmt.Errorf("failed to setup routing paths: %v", err)
	}

	if c.TLS.ServerName != "" { // TLS is enabled
		if c.TLS.CertificatePath == "" || c.TLS.PrivateKeyPath == "" {
			return fmt.Errorf("missing TLS certificate or private key path in config")
		}
	}
	return nil
}

// setupRoutingPaths sets up the routing patterns configuration for HTTP server
func (c *Config) setupRoutingPaths() error {
	if c.TelegramBot.WebhookURL != "" {
		u, err := url.Parse(c.TelegramBot.WebhookURL)
		if err != nil {
			return fmt.Errorf("invalid Telegram bot webhook URL: %v", err)
		}
		if u.Path == "" {
			return fmt.Errorf("Telegram bot webhook URL %q has no path", c.TelegramBot.WebhookURL)
		}
		c.TelegramBotWebhookPath = u.Path
	}

	if c.OAuth.RedirectURI == "" {
		return fmt.Errorf("missing OAuth redirect URI (`redirect_URI`) in config")
	}
	u, err := url.Parse(c.OAuth.RedirectURI)
	if err != nil {
		return fmt.Errorf("invalid OAuth redirect URI: %v", err)
	}
	if u.Path == "" {
		// an empty path would register the pattern "GET " and panic the mux
		return fmt.Errorf("OAuth redirect URI %q has no path", c.OAuth.RedirectURI)
	}
	c.OAuthRedirectPath = u.Path

	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("invalid webhook path %q", c.Webhook.Path)
	}
	for _, p := range []string{c.TelegramBotWebhookPath, c.OAuthRedirectPath} {
		if p == c.Webhook.Path || p == "/health" {
			return fmt.Errorf("conflicting routing path %q", p)
		}
	}
	return nil
}
