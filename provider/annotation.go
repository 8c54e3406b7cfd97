package provider

import (
	"context"
	"fmt"

	"github.com/rushteam/curakit/core"
)

// StoreAnnotations 是基于 core.KeyValueStore 的 AnnotationProvider。
// 样本没有标注时视为所有 label 计数为 0。
type StoreAnnotations struct {
	Store core.KeyValueStore
}

func NewStoreAnnotations(store core.KeyValueStore) *StoreAnnotations {
	return &StoreAnnotations{Store: store}
}

// DefineLabelSet 登记 label set 及其有序 label。
func (p *StoreAnnotations) DefineLabelSet(ctx context.Context, labelSet string, labels []string) error {
	data, err := encode(labels)
	if err != nil {
		return err
	}
	return p.Store.HSet(ctx, labelSetsKey, labelSet, data)
}

// PutCounts 写入样本在某 label set 下的 label 计数。
func (p *StoreAnnotations) PutCounts(ctx context.Context, labelSet, sampleID string, counts map[string]float64) error {
	data, err := encode(counts)
	if err != nil {
		return err
	}
	return p.Store.Set(ctx, annotationKey(labelSet, sampleID), data)
}

func (p *StoreAnnotations) Labels(ctx context.Context, labelSet string) ([]string, error) {
	raw, err := p.Store.HGet(ctx, labelSetsKey, labelSet)
	if core.IsStoreNotFound(err) {
		return nil, core.NewDataError(core.ModuleProvider, "label set %q is not registered", labelSet)
	}
	if err != nil {
		return nil, err
	}
	var labels []string
	if err := decode(raw, &labels); err != nil {
		return nil, fmt.Errorf("decode label set %q: %w", labelSet, err)
	}
	return labels, nil
}

func (p *StoreAnnotations) LabelCounts(ctx context.Context, labelSet string, sampleIDs []string) ([]map[string]float64, error) {
	keys := keysFor(sampleIDs, func(id string) string { return annotationKey(labelSet, id) })
	raw, err := p.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]float64, len(sampleIDs))
	for i, k := range keys {
		data, ok := raw[k]
		if !ok {
			continue
		}
		if err := decode(data, &out[i]); err != nil {
			return nil, core.NewDataError(core.ModuleProvider, "label set %q: sample %q has undecodable counts", labelSet, sampleIDs[i]).
				WithCause(err)
		}
	}
	return out, nil
}

var _ core.AnnotationProvider = (*StoreAnnotations)(nil)
