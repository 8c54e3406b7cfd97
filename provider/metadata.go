package provider

import (
	"context"

	"github.com/rushteam/curakit/core"
)

// StoreMetadata 是基于 core.KeyValueStore 的 MetadataProvider。
// 返回原始值，是否为数值由 Resolver 判断。
type StoreMetadata struct {
	Store core.KeyValueStore
}

func NewStoreMetadata(store core.KeyValueStore) *StoreMetadata {
	return &StoreMetadata{Store: store}
}

// Put 写入样本的 metadata 值，并登记 key。
func (p *StoreMetadata) Put(ctx context.Context, key, sampleID string, value any) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := p.Store.HSet(ctx, metadataKeysKey, key, []byte{1}); err != nil {
		return err
	}
	return p.Store.Set(ctx, metadataKey(key, sampleID), data)
}

func (p *StoreMetadata) Metadata(ctx context.Context, key string, sampleIDs []string) ([]any, error) {
	if _, err := p.Store.HGet(ctx, metadataKeysKey, key); err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.NewDataError(core.ModuleProvider, "metadata key %q is not registered", key)
		}
		return nil, err
	}

	keys := keysFor(sampleIDs, func(id string) string { return metadataKey(key, id) })
	raw, err := p.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(sampleIDs))
	for i, k := range keys {
		data, ok := raw[k]
		if !ok {
			// 缺失值交给 Resolver 报告
			continue
		}
		if err := decode(data, &out[i]); err != nil {
			return nil, core.NewDataError(core.ModuleProvider, "metadata key %q: sample %q has an undecodable value", key, sampleIDs[i]).
				WithCause(err)
		}
	}
	return out, nil
}

var _ core.MetadataProvider = (*StoreMetadata)(nil)
