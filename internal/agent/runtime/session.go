package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"shopassist/internal/ai"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound 会话不存在或已过期
	ErrSessionNotFound = errors.New("session not found")
)

// SessionStore 会话存储，只允许追加
type SessionStore interface {
	// Load 读取会话全部消息，会话不存在返回 ErrSessionNotFound
	Load(ctx context.Context, sessionID string) ([]ai.Message, error)
	// Append 原子追加一轮对话产生的消息，并刷新过期时间
	Append(ctx context.Context, sessionID string, turns ...ai.Message) error
}

// MemorySessionStore 内存会话存储，Redis 不可用时使用
type MemorySessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

type memorySession struct {
	turns     []ai.Message
	expiresAt time.Time
}

// NewMemorySessionStore ttl<=0 表示不过期
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

func (s *MemorySessionStore) Load(_ context.Context, sessionID string) ([]ai.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		return nil, ErrSessionNotFound
	}
	out := make([]ai.Message, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

func (s *MemorySessionStore) Append(_ context.Context, sessionID string, turns ...ai.Message) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	sess.turns = append(sess.turns, turns...)
	if s.ttl > 0 {
		sess.expiresAt = s.now().Add(s.ttl)
	}
	return nil
}

func (s *MemorySessionStore) expired(sess *memorySession) bool {
	return s.ttl > 0 && s.now().After(sess.expiresAt)
}

// RedisSessionStore Redis 列表存储，每条消息一个 JSON 元素
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSessionStore 创建 Redis 会话存储
func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("shopassist:chat:session:%s", sessionID)
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) ([]ai.Message, error) {
	items, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrSessionNotFound
	}

	turns := make([]ai.Message, 0, len(items))
	for _, item := range items {
		var msg ai.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("解析会话消息失败: %w", err)
		}
		turns = append(turns, msg)
	}
	return turns, nil
}

func (s *RedisSessionStore) Append(ctx context.Context, sessionID string, turns ...ai.Message) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("序列化会话消息失败: %w", err)
		}
		values = append(values, data)
	}

	key := sessionKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}
