package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// RedisBlacklistは複数サービス（Auth / Gateway）で共有する実装。
// TTLはRedis自体が管理する。
type RedisBlacklist struct {
	client *redis.Client
}

// DI
func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	return b.client.Set(ctx, blacklistPrefix+token, "blacklisted", ttl).Err()
}

func (b *RedisBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SweepはTTLを失ったまま残った鍵の掃除。通常はRedisのTTLだけで事足りる。
func (b *RedisBlacklist) Sweep(ctx context.Context) (int, error) {
	var cursor uint64
	removed := 0

	for {
		keys, next, err := b.client.Scan(ctx, cursor, blacklistPrefix+"*", 100).Result()
		if err != nil {
			return removed, err
		}

		for _, key := range keys {
			ttl, err := b.client.TTL(ctx, key).Result()
			if err != nil {
				return removed, err
			}
			//TTLなしで残った鍵だけ消す（go-redisは秒精度で-1sを返す）
			if ttl == -1*time.Second {
				if err := b.client.Del(ctx, key).Err(); err != nil {
					return removed, err
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
