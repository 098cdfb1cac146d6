package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/simulacro-api/pkg/config"
)

const (
	pingTimeout  = 3 * time.Second
	pingAttempts = 3
)

// NewRedis connects to the ranking cache. Short socket timeouts keep a slow
// Redis from delaying ranking responses; callers treat cache errors as misses.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		if attempt < pingAttempts {
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("ping redis %s:%d: %w", cfg.Host, cfg.Port, err)
}
