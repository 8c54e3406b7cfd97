package store

import (
	"context"
	"sync"

	"github.com/rushteam/curakit/core"
)

// MemoryTagStore 是内存实现的 TagStore，用于测试/开发/原型。
// 写入在一把锁内完成，读者要么看不到 tag，要么看到完整成员。
type MemoryTagStore struct {
	mu   sync.RWMutex
	tags map[string]*core.Tag
}

func NewMemoryTagStore() *MemoryTagStore {
	return &MemoryTagStore{tags: make(map[string]*core.Tag)}
}

func (m *MemoryTagStore) Name() string { return "memory" }

func (m *MemoryTagStore) TagExists(ctx context.Context, scope, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tags[tagKey("", scope, name)]
	return ok, nil
}

func (m *MemoryTagStore) CreateTag(ctx context.Context, tag *core.Tag) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tagKey("", tag.Scope, tag.Name)
	if _, ok := m.tags[key]; ok {
		return core.ErrTagExists
	}
	m.tags[key] = cloneTag(tag)
	return nil
}

func (m *MemoryTagStore) GetTag(ctx context.Context, scope, name string) (*core.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tag, ok := m.tags[tagKey("", scope, name)]
	if !ok {
		return nil, core.ErrTagNotFound
	}
	return cloneTag(tag), nil
}

// Len 返回 tag 数量（测试用）
func (m *MemoryTagStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tags)
}

func (m *MemoryTagStore) Close() error { return nil }

var _ core.TagStore = (*MemoryTagStore)(nil)
