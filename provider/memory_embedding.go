package provider

import (
	"context"
	"sync"

	"github.com/rushteam/curakit/core"
)

// MemoryEmbeddings 是内存实现的 EmbeddingProvider，用于测试/开发/原型。
//
// 特点：
//   - 纯内存实现，进程重启后数据丢失
//   - 每个空间固定维度，写入时校验
//   - 线程安全
type MemoryEmbeddings struct {
	mu           sync.RWMutex
	spaces       map[string]*space
	defaultSpace string
}

type space struct {
	dimension int
	vectors   map[string][]float64 // sample ID -> vector
}

// NewMemoryEmbeddings 创建内存 embedding 提供方。
func NewMemoryEmbeddings() *MemoryEmbeddings {
	return &MemoryEmbeddings{spaces: make(map[string]*space)}
}

// CreateSpace 创建空间；第一个创建的空间成为默认空间。
func (m *MemoryEmbeddings) CreateSpace(name string, dimension int) error {
	if dimension <= 0 {
		return core.NewDataError(core.ModuleProvider, "embedding space %q: dimension must be > 0, got %d", name, dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.spaces[name]; ok {
		return core.NewDomainError(core.ModuleProvider, core.ErrorCodeAlreadyExists, "embedding space "+name+" already exists")
	}
	m.spaces[name] = &space{dimension: dimension, vectors: make(map[string][]float64)}
	if m.defaultSpace == "" {
		m.defaultSpace = name
	}
	return nil
}

// SetDefault 指定默认空间。
func (m *MemoryEmbeddings) SetDefault(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultSpace = name
}

// Upsert 写入或覆盖样本向量。
func (m *MemoryEmbeddings) Upsert(name, sampleID string, vector []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp, ok := m.spaces[name]
	if !ok {
		return core.NewDataError(core.ModuleProvider, "embedding space %q is not registered", name)
	}
	if len(vector) != sp.dimension {
		return core.NewDataError(core.ModuleProvider, "embedding space %q: vector for sample %q has dimension %d, want %d",
			name, sampleID, len(vector), sp.dimension)
	}
	sp.vectors[sampleID] = append([]float64(nil), vector...)
	return nil
}

func (m *MemoryEmbeddings) Embeddings(ctx context.Context, name string, sampleIDs []string) ([][]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		name = m.defaultSpace
	}
	sp, ok := m.spaces[name]
	if !ok {
		return nil, core.NewDataError(core.ModuleProvider, "embedding space %q is not registered", name)
	}

	out := make([][]float64, len(sampleIDs))
	for i, id := range sampleIDs {
		v, ok := sp.vectors[id]
		if !ok {
			return nil, core.NewDataError(core.ModuleProvider, "embedding space %q: no embedding for sample %q", name, id)
		}
		out[i] = v
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*MemoryEmbeddings)(nil)
