package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testConfig = `
port = 9090

[redis]
address = "localhost:6379"
pending_login_ttl = "5m"

[telegram_bot]
token = "123:from-file"
webhook_URL = "https://bot.example.com/telegram/hook"
language = "fa"

[oauth]
client_id = "mashinato-bot"
client_secret = "from-file"
authorize_URL = "https://sso.example.com/application/o/authorize/"
token_URL = "https://sso.example.com/application/o/token/"
redirect_URI = "https://bot.example.com/oauth/callback"
timeout = "10s"

[auth]
refresh_skew = "2m"

[webhook]
secret = "from-file"
max_skew = "5m"

[jobs]
refresh_sessions_cron = "*/10 * * * *"
`

func TestParseConfig(t *testing.T) {
	c, err := parseConfig([]byte(testConfig))
	require.NoError(t, err)

	require.Equal(t, "localhost", c.Host)
	require.EqualValues(t, 9090, c.Port)
	require.Equal(t, "/telegram/hook", c.TelegramBotWebhookPath)
	require.Equal(t, "/oauth/callback", c.OAuthRedirectPath)
	require.Equal(t, defaultWebhookPath, c.Webhook.Path)
	require.EqualValues(t, defaultMaxBodySize, c.Webhook.MaxBodySize)

	durations := map[string]time.Duration{
		"pending_login_ttl": c.Redis.PendingLoginTTL.Duration,
		"timeout":           c.OAuth.Timeout.Duration,
		"refresh_skew":      c.Auth.RefreshSkew.Duration,
		"max_skew":          c.Webhook.MaxSkew.Duration,
	}
	want := map[string]time.Duration{
		"pending_login_ttl": 5 * time.Minute,
		"timeout":           10 * time.Second,
		"refresh_skew":      2 * time.Minute,
		"max_skew":          5 * time.Minute,
	}
	if diff := cmp.Diff(want, durations); diff != "" {
		t.Errorf("durations mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfig_EnvOverrides(t *testing.T) {
	t.Setenv(envBotToken, "123:from-env")
	t.Setenv(envOAuthClientSecret, "from-env")
	t.Setenv(envWebhookSecret, "from-env")
	t.Setenv(envRedisPassword, "")

	c, err := parseConfig([]byte(testConfig))
	require.NoError(t, err)
	require.Equal(t, "123:from-env", c.TelegramBot.Token)
	require.Equal(t, "from-env", c.OAuth.ClientSecret)
	require.Equal(t, "from-env", c.Webhook.Secret)
	require.Empty(t, c.Redis.Password)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":                      `port = "not a number"`,
		"no redirect URI":             "[telegram_bot]\ntoken = \"t\"",
		"no token":                    "[oauth]\nredirect_URI = \"https://bot.example.com/cb\"",
		"bad duration":                "[telegram_bot]\ntoken = \"t\"\n[oauth]\nredirect_URI = \"https://bot.example.com/cb\"\ntimeout = \"soon\"",
		"conflicting paths":           "[telegram_bot]\ntoken = \"t\"\n[oauth]\nredirect_URI = \"https://bot.example.com/webhook\"",
		"relative path":               "[telegram_bot]\ntoken = \"t\"\n[oauth]\nredirect_URI = \"https://bot.example.com/cb\"\n[webhook]\npath = \"events\"",
		"TLS without a cert":          "[telegram_bot]\ntoken = \"t\"\n[oauth]\nredirect_URI = \"https://bot.example.com/cb\"\n[tls]\nserver_name = \"bot.example.com\"",
		"redirect URI without a path": "[telegram_bot]\ntoken = \"t\"\n[oauth]\nredirect_URI = \"https://bot.example.com\"",
		"webhook URL without a path":  "[telegram_bot]\ntoken = \"t\"\nwebhook_URL = \"https://bot.example.com\"\n[oauth]\nredirect_URI = \"https://bot.example.com/cb\"",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(envBotToken, "")
			_, err := parseConfig([]byte(data))
			require.Error(t, err)
		})
	}
}
