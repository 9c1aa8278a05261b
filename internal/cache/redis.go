// Package cache содержит кэш конфигурации колеса призов в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

const (
	spinConfigKey  = "spin:config"
	spinVersionKey = "spin:config:version"
	spinTTL        = 24 * time.Hour
)

// setIfNewer записывает конфигурацию, только если её версия больше сохранённой.
var setIfNewer = redis.NewScript(`
	local current = tonumber(redis.call("GET", KEYS[2]) or "-1")
	if tonumber(ARGV[1]) > current then
		redis.call("SET", KEYS[1], ARGV[2], "EX", ARGV[3])
		redis.call("SET", KEYS[2], ARGV[1], "EX", ARGV[3])
		return 1
	end
	return 0
`)

// SpinCache хранит последнюю версию конфигурации колеса.
type SpinCache struct {
	client *redis.Client
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewSpinCache создаёт кэш поверх клиента Redis.
func NewSpinCache(client *redis.Client) *SpinCache {
	return &SpinCache{client: client}
}

// Get возвращает закэшированную конфигурацию или nil, nil при промахе.
func (c *SpinCache) Get(ctx context.Context) (*model.SpinConfig, error) {
	raw, err := c.client.Get(ctx, spinConfigKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get spin config: %w", err)
	}

	var cfg model.SpinConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode spin config: %w", err)
	}
	return &cfg, nil
}

// Set сохраняет конфигурацию, если её версия новее закэшированной.
func (c *SpinCache) Set(ctx context.Context, cfg *model.SpinConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode spin config: %w", err)
	}

	err = setIfNewer.Run(ctx, c.client,
		[]string{spinConfigKey, spinVersionKey},
		cfg.Version, raw, int(spinTTL.Seconds()),
	).Err()
	if err != nil {
		return fmt.Errorf("set spin config: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *SpinCache) Close() error {
	return c.client.Close()
}
