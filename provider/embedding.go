package provider

import (
	"context"
	"fmt"

	"github.com/rushteam/curakit/core"
)

// StoreEmbeddings 是基于 core.KeyValueStore 的 EmbeddingProvider。
// embedding 由离线推理任务通过 Put 写入，选择链路只读。
type StoreEmbeddings struct {
	Store core.KeyValueStore

	// DefaultSpace 是策略未指定 embedding space 时使用的空间
	DefaultSpace string
}

func NewStoreEmbeddings(store core.KeyValueStore, defaultSpace string) *StoreEmbeddings {
	return &StoreEmbeddings{Store: store, DefaultSpace: defaultSpace}
}

// RegisterSpace 登记一个 embedding 空间及其维度。
func (p *StoreEmbeddings) RegisterSpace(ctx context.Context, space string, dim int) error {
	data, err := encode(dim)
	if err != nil {
		return err
	}
	return p.Store.HSet(ctx, embeddingSpacesKey, space, data)
}

// Put 写入一个样本在某空间下的 embedding，维度必须与登记的一致。
func (p *StoreEmbeddings) Put(ctx context.Context, space, sampleID string, vector []float64) error {
	dim, err := p.dimension(ctx, space)
	if err != nil {
		return err
	}
	if len(vector) != dim {
		return core.NewDataError(core.ModuleProvider, "embedding space %q: vector for sample %q has dimension %d, want %d",
			space, sampleID, len(vector), dim)
	}
	data, err := encode(vector)
	if err != nil {
		return err
	}
	return p.Store.Set(ctx, embeddingKey(space, sampleID), data)
}

func (p *StoreEmbeddings) dimension(ctx context.Context, space string) (int, error) {
	raw, err := p.Store.HGet(ctx, embeddingSpacesKey, space)
	if core.IsStoreNotFound(err) {
		return 0, core.NewDataError(core.ModuleProvider, "embedding space %q is not registered", space)
	}
	if err != nil {
		return 0, err
	}
	var dim int
	if err := decode(raw, &dim); err != nil {
		return 0, fmt.Errorf("decode dimension of space %q: %w", space, err)
	}
	return dim, nil
}

func (p *StoreEmbeddings) Embeddings(ctx context.Context, space string, sampleIDs []string) ([][]float64, error) {
	if space == "" {
		space = p.DefaultSpace
	}
	if space == "" {
		return nil, core.NewDataError(core.ModuleProvider, "embedding space: none given and no default space configured")
	}
	if _, err := p.dimension(ctx, space); err != nil {
		return nil, err
	}

	keys := keysFor(sampleIDs, func(id string) string { return embeddingKey(space, id) })
	raw, err := p.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(sampleIDs))
	for i, k := range keys {
		data, ok := raw[k]
		if !ok {
			return nil, core.NewDataError(core.ModuleProvider, "embedding space %q: no embedding for sample %q", space, sampleIDs[i])
		}
		if err := decode(data, &out[i]); err != nil {
			return nil, core.NewDataError(core.ModuleProvider, "embedding space %q: sample %q has an undecodable embedding", space, sampleIDs[i]).
				WithCause(err)
		}
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*StoreEmbeddings)(nil)
