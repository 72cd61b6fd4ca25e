package ratelimiters

import (
	"context"
	"fmt"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// limits
var (
	limitBotUpdate            = redis_rate.PerSecond(2)
	limitLoginCommand         = redis_rate.PerMinute(3)
	limitOAuthRedirectRequest = redis_rate.PerMinute(10)
	limitWebhookPush          = redis_rate.PerSecond(50)
)

// limit key prefixes
const (
	keyPrefixBotUpdate            = "r:b"
	keyPrefixLoginCommand         = "r:l"
	keyPrefixOAuthRedirectRequest = "r:o"
	keyPrefixWebhookPush          = "r:w"
)

// Limiters represents the redis-backed rate limiters, every counter expires on its own
type Limiters struct {
	limiter *redis_rate.Limiter
}

// New initializes the rate limiters on the given redis client
func New(rdb *redis.Client) *Limiters {
	return &Limiters{limiter: redis_rate.NewLimiter(rdb)}
}

// BotUpdateAllowed checks if an incoming Bot Update from a user with the given ID is allowed to get processed
func (l *Limiters) BotUpdateAllowed(ctx context.Context, userID int64) bool {
	return l.allow(ctx, fmt.Sprintf("%s:%d", keyPrefixBotUpdate, userID), limitBotUpdate)
}

// LoginCommandAllowed checks if a login prompt may be generated for a user with the given ID
func (l *Limiters) LoginCommandAllowed(ctx context.Context, userID int64) bool {
	return l.allow(ctx, fmt.Sprintf("%s:%d", keyPrefixLoginCommand, userID), limitLoginCommand)
}

// OAuthRedirectRequestAllowed checks if an incoming OAuth redirect request from the given IP address is allowed to get processed
func (l *Limiters) OAuthRedirectRequestAllowed(ctx context.Context, IP string) bool {
	return l.allow(ctx, fmt.Sprintf("%s:%s", keyPrefixOAuthRedirectRequest, IP), limitOAuthRedirectRequest)
}

// WebhookPushAllowed checks if an incoming backend event push from the given IP address is allowed to get processed
func (l *Limiters) WebhookPushAllowed(ctx context.Context, IP string) bool {
	return l.allow(ctx, fmt.Sprintf("%s:%s", keyPrefixWebhookPush, IP), limitWebhookPush)
}

func (l *Limiters) allow(ctx context.Context, key string, limit redis_rate.Limit) bool {
	res, err := l.limiter.Allow(ctx, key, limit)
	if err != nil {
		log.WithField("key", key).Errorf("failed to check rate limit: %v", err)
		return false
	}
	return res.Allowed != 0
}
