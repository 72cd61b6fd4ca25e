package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"MashinatoBot/pkg/duration"
)

// Config represents a configuration for redis connection
type Config struct {
	Addr     string `toml:"address"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	DB       int    `toml:"db,omitempty"`

	PendingLoginTTL duration.Duration `toml:"pending_login_ttl,omitempty"`
}

// Store represents the durable storage of sessions, pending logins and notification preferences
type Store struct {
	rdb             *redis.Client
	ttlPendingLogin time.Duration
}

// Open opens a connection to redis server and checks it's reachable
func Open(ctx context.Context, config Config) (*Store, error) {
	addrType := "tcp"
	if strings.HasPrefix(config.Addr, "/") { // for unix sockets
		addrType = "unix"
	}

	rdb := redis.NewClient(&redis.Options{
		Network:  addrType,
		Addr:     config.Addr,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("db: error connecting to redis at %s: %w", config.Addr, err)
	}

	ttl := config.PendingLoginTTL.Duration
	if ttl <= 0 {
		ttl = defaultTTLPendingLogin
	}
	log.Debugf("connected to redis at %s", config.Addr)
	return &Store{rdb: rdb, ttlPendingLogin: ttl}, nil
}

// Client returns the underlying redis client (shared with the rate limiters)
func (s *Store) Client() *redis.Client {
	return s.rdb
}

// Ping checks the connection to redis server
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the connection to redis server
func (s *Store) Close() error {
	return s.rdb.Close()
}
