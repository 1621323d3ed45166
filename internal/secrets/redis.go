package secrets

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisProvider reads secrets from Redis string keys. The deployment
// tooling writes secrets under prefix+"secret:"+path.
type RedisProvider struct {
	client *redis.Client
	prefix string
}

// NewRedisProvider creates a Redis-backed secret provider.
func NewRedisProvider(client *redis.Client, prefix string) *RedisProvider {
	return &RedisProvider{
		client: client,
		prefix: prefix + "secret:",
	}
}

func (p *RedisProvider) key(path string) string {
	return p.prefix + path
}

func (p *RedisProvider) Get(ctx context.Context, path string, _ bool) (string, bool, error) {
	val, err := p.client.Get(ctx, p.key(path)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a secret. Used by the management tools, not by the server.
func (p *RedisProvider) Set(ctx context.Context, path, value string) error {
	return p.client.Set(ctx, p.key(path), value, 0).Err()
}
