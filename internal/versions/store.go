package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/resume"
)

// Store 按 owner 保存版本列表。
type Store interface {
	Load(ctx context.Context, owner string) ([]resume.Version, error)
	Save(ctx context.Context, owner string, list []resume.Version) error
}

// MemoryStore 进程内实现。
type MemoryStore struct {
	mu    sync.Mutex
	lists map[string][]resume.Version
}

// NewMemoryStore 创建空的 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]resume.Version)}
}

func (s *MemoryStore) Load(_ context.Context, owner string) ([]resume.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneList(s.lists[owner]), nil
}

func (s *MemoryStore) Save(_ context.Context, owner string, list []resume.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[owner] = cloneList(list)
	return nil
}

const redisKeyPrefix = "resume:versions:"

// RedisStore 把版本列表序列化为 JSON 存在一个 key 下。
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore ttl 为 0 表示不过期。
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, owner string) ([]resume.Version, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+owner).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []resume.Version{}, nil
		}
		return nil, fmt.Errorf("load versions for %q: %w", owner, err)
	}
	var list []resume.Version
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode versions for %q: %w", owner, err)
	}
	return list, nil
}

func (s *RedisStore) Save(ctx context.Context, owner string, list []resume.Version) error {
	if list == nil {
		list = []resume.Version{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode versions for %q: %w", owner, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+owner, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save versions for %q: %w", owner, err)
	}
	return nil
}

// History 把纯函数与 Store 组合起来，供会话层直接使用。
type History struct {
	store Store
	owner string
	now   func() time.Time
}

// NewHistory owner 通常为用户邮箱。
func NewHistory(store Store, owner string) *History {
	return &History{store: store, owner: owner, now: time.Now}
}

// Snapshot 保存 doc 的快照。
func (h *History) Snapshot(ctx context.Context, doc resume.Document, name string) (resume.Version, error) {
	list, err := h.store.Load(ctx, h.owner)
	if err != nil {
		return resume.Version{}, err
	}
	next, v := Snapshot(list, doc, name, h.now())
	if err := h.store.Save(ctx, h.owner, next); err != nil {
		return resume.Version{}, err
	}
	return v, nil
}

// Restore 返回指定版本的 Document。
func (h *History) Restore(ctx context.Context, id string) (resume.Document, error) {
	list, err := h.store.Load(ctx, h.owner)
	if err != nil {
		return resume.Document{}, err
	}
	return Restore(list, id)
}

// List 返回倒序版本列表。
func (h *History) List(ctx context.Context) ([]resume.Version, error) {
	list, err := h.store.Load(ctx, h.owner)
	if err != nil {
		return nil, err
	}
	return List(list), nil
}

func cloneList(list []resume.Version) []resume.Version {
	out := make([]resume.Version, len(list))
	for i, v := range list {
		v.Data = v.Data.Clone()
		out[i] = v
	}
	return out
}
