// Package token はワンタイムトークンの発行と引き換えを提供します。
package token

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store はTTL付きキーバリューストアの契約です。
// Get はキーが存在しない場合に空文字列と nil エラーを返します。
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// RedisStore は Store の Redis 実装です。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Set は値をTTL付きで保存します。期限切れの削除はRedisに委ねます。
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Get は値を取得します。キーが存在しない場合は空文字列を返します。
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Del はキーを削除します。存在しないキーはエラーになりません。
func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
