package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"socket-gateway/internal/config"
)

// Store holds the redis client the gateway will use for cross-instance
// session state. Nothing reads or writes through it yet; it exists so the
// dependency is wired and health-checked from day one.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

func New(cfg *config.RedisConfig, logger *slog.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	return &Store{client: client, logger: logger}
}

// Ping verifies the connection. The gateway stays up without redis since no
// live path depends on it.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) Close() error {
	return s.client.Close()
}
