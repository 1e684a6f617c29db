package quota

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore はRedisを使用したカウンタストア。
// INCRとEXPIREにより複数プロセス間でもアトミックにカウントでき、
// プロセス再起動や水平スケールでもカウンタが失われない。
type RedisStore struct {
	rdb *goredis.Client
}

// NewRedisStore はRedisStoreを生成し、疎通確認を行う。
func NewRedisStore(addr string) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// Incr はキーのカウンタをアトミックに1増やし、増加後の値を返す。
// 新規キーの場合のみTTLを設定する（既存キーのTTLは延長しない）。
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("カウンタのインクリメントに失敗しました: %w", err)
	}
	return incr.Val(), nil
}

// Peek はキーの現在値を返す。キーが存在しない場合は0を返す。
func (s *RedisStore) Peek(ctx context.Context, key string) (int64, error) {
	val, err := s.rdb.Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("カウンタの取得に失敗しました: %w", err)
	}
	return val, nil
}

// Close はRedis接続を閉じる。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
