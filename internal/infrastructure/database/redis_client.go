package database

import (
	"context"
	"fmt"
	"time"

	appconfig "orderflow/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ConnectRedis opens a client and pings it so a bad address fails at startup.
func ConnectRedis(ctx context.Context, c appconfig.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", c.Addr, err)
	}
	log.Printf("[redis][client] connected addr=%s db=%d", c.Addr, c.DB)
	return client, nil
}
