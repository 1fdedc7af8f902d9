package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"job-etl-go/internal/config"
)

// loadedIDKey builds the cache key marking a posting as already loaded
// for a given source.
func loadedIDKey(source, id string) string {
	return fmt.Sprintf("etl:loaded:%s:%s", source, id)
}

// Redis keeps the cross-run loaded-ID marks. Reruns first consult the
// cache and skip postings a previous run already persisted; the store's
// primary-key upsert-ignore remains the backstop when the cache is cold
// or disabled.
type Redis struct {
	client   *redis.Client
	expireIn time.Duration
}

// NewRedis connects the loaded-ID cache and verifies the server answers.
func NewRedis(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config must not be nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DialTimeoutSeconds)*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}

	return &Redis{
		client:   client,
		expireIn: time.Duration(cfg.LoadedIDExpireDays) * 24 * time.Hour,
	}, nil
}

// FilterLoaded returns the subset of ids already marked as loaded.
func (r *Redis) FilterLoaded(ctx context.Context, source string, ids []string) (map[string]bool, error) {
	loaded := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return loaded, nil
	}

	pipe := r.client.Pipeline()
	results := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		results[i] = pipe.Exists(ctx, loadedIDKey(source, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check loaded ids: %w", err)
	}
	for i, cmd := range results {
		if cmd.Val() > 0 {
			loaded[ids[i]] = true
		}
	}
	return loaded, nil
}

// MarkLoaded records ids as loaded with the configured expiry.
func (r *Redis) MarkLoaded(ctx context.Context, source string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, id := range ids {
		pipe.Set(ctx, loadedIDKey(source, id), 1, r.expireIn)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark loaded ids: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
