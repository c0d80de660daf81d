package translator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 7 * 24 * time.Hour

// CachedService 用 Redis 缓存翻译结果，同一段文本（例如重复出现的署名、栏目说明）不重复请求外部接口。
// Redis 为 nil 时直接透传
type CachedService struct {
	Service Service
	Redis   *redis.Client
	TTL     time.Duration
}

func NewCachedService(s Service, rdb *redis.Client) *CachedService {
	return &CachedService{Service: s, Redis: rdb, TTL: defaultCacheTTL}
}

func (c *CachedService) Translate(ctx context.Context, text, source, target string) (string, error) {
	if c.Redis == nil {
		return c.Service.Translate(ctx, text, source, target)
	}

	key := cacheKey(text, source, target)
	if s, err := c.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		return s, nil
	}

	out, err := c.Service.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	_ = c.Redis.Set(ctx, key, out, ttl).Err()
	return out, nil
}

func cacheKey(text, source, target string) string {
	h := sha1.Sum([]byte(text))
	return "translate:" + source + ":" + target + ":" + hex.EncodeToString(h[:])
}
