package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/pkg/logger"
)

// KeyPrefix is prepended to every lock key in Redis.
const KeyPrefix = "word-mcp:lock:"

var (
	client  *redis.Client
	once    sync.Once
	initErr error
)

// GetClient 使用单例模式初始化并返回一个 Redis 客户端实例。
// 它确保到 Redis 的连接在整个应用生命周期中只被建立一次。
func GetClient(cfg *config.RedisConfig) (*redis.Client, error) {
	once.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		// 使用 Ping 检查连接是否成功。
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			initErr = fmt.Errorf("无法连接到 Redis: %w", err)
			return
		}
		log.Println("成功连接到 Redis")
		client = rdb
	})
	return client, initErr
}

// Only the holder of the token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every server instance using the same Redis.
type Redis struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewRedis returns a Locker whose locks expire after ttl if never released.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, retry: 50 * time.Millisecond}
}

// Lock retries SET NX until it succeeds or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := KeyPrefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			var released sync.Once
			return func() {
				released.Do(func() {
					// The caller's context may be gone by now.
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := releaseScript.Run(ctx, r.rdb, []string{k}, token).Err(); err != nil {
						logger.New("redis-lock", "", "").WithError(err).WithField("key", k).Warn("释放 Redis 锁失败")
					}
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLocked, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
