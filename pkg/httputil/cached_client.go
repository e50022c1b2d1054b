package httputil

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// CachedClient 对 GET JSON 响应做内存缓存的客户端
type CachedClient struct {
	client   *Client
	memCache sync.Map
	cacheTTL time.Duration
	onHit    func()
	onMiss   func()
}

// CachedClientOption 缓存客户端配置选项
type CachedClientOption func(*CachedClient)

// WithCacheTTL 设置缓存过期时间
func WithCacheTTL(ttl time.Duration) CachedClientOption {
	return func(c *CachedClient) {
		c.cacheTTL = ttl
	}
}

// WithCacheHooks 命中/未命中回调（用于指标）
func WithCacheHooks(onHit, onMiss func()) CachedClientOption {
	return func(c *CachedClient) {
		c.onHit = onHit
		c.onMiss = onMiss
	}
}

// NewCachedClient 创建带缓存的HTTP客户端
func NewCachedClient(client *Client, opts ...CachedClientOption) *CachedClient {
	cc := &CachedClient{
		client:   client,
		cacheTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func (cc *CachedClient) generateCacheKey(method, url string) string {
	hash := md5.Sum([]byte(method + " " + url))
	return "http:" + hex.EncodeToString(hash[:])
}

func (cc *CachedClient) getFromMemCache(key string) ([]byte, bool) {
	if value, ok := cc.memCache.Load(key); ok {
		entry := value.(cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.data, true
		}
		cc.memCache.Delete(key)
	}
	return nil, false
}

// GetJSON 发送GET请求并解析JSON响应，仅缓存 200 响应
func (cc *CachedClient) GetJSON(ctx context.Context, url string, result interface{}) error {
	key := cc.generateCacheKey("GET", url)

	if data, ok := cc.getFromMemCache(key); ok {
		if cc.onHit != nil {
			cc.onHit()
		}
		return json.Unmarshal(data, result)
	}
	if cc.onMiss != nil {
		cc.onMiss()
	}

	body, err := cc.client.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析JSON响应失败: %w", err)
	}

	if cc.cacheTTL > 0 {
		cc.memCache.Store(key, cacheEntry{data: body, expiresAt: time.Now().Add(cc.cacheTTL)})
	}
	return nil
}

// Invalidate 清空缓存
func (cc *CachedClient) Invalidate() {
	cc.memCache.Range(func(key, _ any) bool {
		cc.memCache.Delete(key)
		return true
	})
}
