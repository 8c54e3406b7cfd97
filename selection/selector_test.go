package selection

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/curakit/core"
	"github.com/rushteam/curakit/kernel"
	"github.com/rushteam/curakit/provider"
	"github.com/rushteam/curakit/resolver"
	"github.com/rushteam/curakit/store"
)

type countingEmbeddings struct {
	inner core.EmbeddingProvider
	calls atomic.Int32
	rows  [][]float64 // 非 nil 时直接返回，忽略 inner
}

func (c *countingEmbeddings) Embeddings(ctx context.Context, space string, ids []string) ([][]float64, error) {
	c.calls.Add(1)
	if c.rows != nil {
		return c.rows, nil
	}
	return c.inner.Embeddings(ctx, space, ids)
}

type countingMetadata struct {
	inner core.MetadataProvider
	calls atomic.Int32
}

func (c *countingMetadata) Metadata(ctx context.Context, key string, ids []string) ([]any, error) {
	c.calls.Add(1)
	return c.inner.Metadata(ctx, key, ids)
}

type env struct {
	sel  *Selector
	emb  *countingEmbeddings
	meta *countingMetadata
	tags *store.MemoryTagStore
	hook *test.Hook
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })

	mem := provider.NewMemoryEmbeddings()
	require.NoError(t, mem.CreateSpace("clip", 1))
	for id, v := range map[string]float64{"a": 1, "b": 3, "c": 5} {
		require.NoError(t, mem.Upsert("clip", id, []float64{v}))
	}

	meta := provider.NewStoreMetadata(kv)
	for id, v := range map[string]float64{"a": 1, "b": 2, "c": 3} {
		require.NoError(t, meta.Put(ctx, "uncertainty", id, v))
	}

	ann := provider.NewStoreAnnotations(kv)
	require.NoError(t, ann.DefineLabelSet(ctx, "species", []string{"cat", "dog"}))
	counts := map[string]map[string]float64{
		"s0": {"cat": 1},
		"s1": {"cat": 0.3, "dog": 0.7},
		"s2": {"dog": 1},
		"s3": {"dog": 1},
		"s4": {"cat": 1, "dog": 1},
	}
	for id, c := range counts {
		require.NoError(t, ann.PutCounts(ctx, "species", id, c))
	}

	logger, hook := test.NewNullLogger()
	e := &env{
		emb:  &countingEmbeddings{inner: mem},
		meta: &countingMetadata{inner: meta},
		tags: store.NewMemoryTagStore(),
		hook: hook,
	}
	e.sel = &Selector{
		Resolver: &resolver.Resolver{Embeddings: e.emb, Metadata: e.meta, Annotations: ann},
		Tags:     e.tags,
		Logger:   logger,
		Now:      func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	return e
}

func config(pool []string, k int, strategies ...core.Strategy) *core.SelectionConfig {
	return &core.SelectionConfig{
		Scope:         "ds-1",
		CandidatePool: pool,
		Strategies:    strategies,
		K:             k,
		ResultTagName: "picked",
	}
}

func TestRun_WritesTagInPickOrder(t *testing.T) {
	tests := []struct {
		name string
		cfg  *core.SelectionConfig
		want []string
	}{
		{"diversity", config([]string{"a", "b", "c"}, 2, core.Diversity("clip", 1)), []string{"a", "c"}},
		{"weighting", config([]string{"a", "b", "c"}, 2, core.Weighting("uncertainty", 1)), []string{"c", "b"}},
		{
			"class balance",
			config([]string{"s0", "s1", "s2", "s3", "s4"}, 2, core.ClassBalance("species", []float64{0.5, 0.5}, 1)),
			[]string{"s4", "s1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			res, err := e.sel.Run(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.SampleIDs)
			assert.Equal(t, "picked", res.TagName)

			tag, err := e.tags.GetTag(context.Background(), "ds-1", "picked")
			require.NoError(t, err)
			assert.Equal(t, tt.want, tag.SampleIDs)
			assert.NotEmpty(t, tag.ID)
			assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), tag.CreatedAt)

			entry := e.hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, "selection committed", entry.Message)
			assert.Equal(t, tag.ID, entry.Data["tag_id"])
		})
	}
}

func TestRun_CapacityError(t *testing.T) {
	e := newEnv(t)
	// 去重、去空后 n = 2
	cfg := config([]string{"a", "a", "", "b"}, 3, core.Diversity("clip", 1), core.Weighting("uncertainty", 1))

	res, err := e.sel.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, core.IsCapacityError(err))
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "2")

	de := core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, 3, de.Params["requested"])
	assert.Equal(t, 2, de.Params["available"])

	assert.Zero(t, e.emb.calls.Load())
	assert.Zero(t, e.meta.calls.Load())
	assert.Zero(t, e.tags.Len())
}

func TestRun_DuplicateTagFailsBeforeFetch(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.tags.CreateTag(context.Background(), &core.Tag{ID: "t0", Scope: "ds-1", Name: "picked", SampleIDs: []string{"a"}}))

	_, err := e.sel.Run(context.Background(), config([]string{"a", "b", "c"}, 1, core.Diversity("clip", 1)))
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Zero(t, e.emb.calls.Load())

	tag, err := e.tags.GetTag(context.Background(), "ds-1", "picked")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tag.SampleIDs, "existing tag is untouched")
}

func TestRun_ShapeErrorLeavesNothing(t *testing.T) {
	e := newEnv(t)
	e.emb.rows = [][]float64{{1}, {2}}

	res, err := e.sel.Run(context.Background(), config([]string{"a", "b", "c"}, 1, core.Diversity("clip", 1)))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, core.IsShapeError(err))
	assert.Zero(t, e.tags.Len())
}

func TestRun_DataErrorLeavesNothing(t *testing.T) {
	e := newEnv(t)
	_, err := e.sel.Run(context.Background(), config([]string{"a", "b", "nope"}, 1, core.Weighting("uncertainty", 1)))
	require.Error(t, err)
	assert.True(t, core.IsDataError(err))
	assert.Zero(t, e.tags.Len())
}

func TestRun_Cardinality(t *testing.T) {
	ctx := context.Background()
	mem := provider.NewMemoryEmbeddings()
	require.NoError(t, mem.CreateSpace("clip", 2))
	pool := make([]string, 20)
	for i := range pool {
		pool[i] = fmt.Sprintf("s%02d", i)
		require.NoError(t, mem.Upsert("clip", pool[i], []float64{float64(i % 7), float64(i * i % 11)}))
	}

	for _, k := range []int{1, 5, 20} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			sel := &Selector{
				Resolver:      &resolver.Resolver{Embeddings: mem},
				Tags:          store.NewMemoryTagStore(),
				KernelOptions: []kernel.Option{kernel.WithParallelism(4), kernel.WithParallelThreshold(2)},
			}
			res, err := sel.Run(ctx, config(pool, k, core.Diversity("", 1)))
			require.NoError(t, err)
			require.Len(t, res.SampleIDs, k)

			seen := map[string]bool{}
			for i, id := range res.SampleIDs {
				assert.False(t, seen[id], "duplicate %s", id)
				seen[id] = true
				assert.Equal(t, pool[res.Indices[i]], id)
			}
		})
	}
}

func TestPreview_DoesNotWriteTag(t *testing.T) {
	e := newEnv(t)
	cfg := config([]string{"a", "b", "c"}, 2, core.Diversity("clip", 1))

	preview, err := e.sel.Preview(context.Background(), cfg)
	require.NoError(t, err)
	assert.Zero(t, e.tags.Len())

	res, err := e.sel.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, preview.SampleIDs, res.SampleIDs)
	assert.Equal(t, 1, e.tags.Len())
}

// racingTags 模拟 Validate 之后另一个请求抢先写入同名 tag。
type racingTags struct {
	*store.MemoryTagStore
}

func (racingTags) TagExists(context.Context, string, string) (bool, error) { return false, nil }

func (racingTags) CreateTag(context.Context, *core.Tag) error { return core.ErrTagExists }

func TestRun_ConcurrentDuplicateIsConfigurationError(t *testing.T) {
	e := newEnv(t)
	e.sel.Tags = racingTags{store.NewMemoryTagStore()}

	_, err := e.sel.Run(context.Background(), config([]string{"a", "b", "c"}, 1, core.Diversity("clip", 1)))
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_ExistenceCheckUsesSelectorTags(t *testing.T) {
	e := newEnv(t)
	// Resolver 上挂着另一个 store，其中已有同名 tag；写入目标是 e.tags
	other := store.NewMemoryTagStore()
	require.NoError(t, other.CreateTag(context.Background(), &core.Tag{ID: "t0", Scope: "ds-1", Name: "picked"}))
	e.sel.Resolver.Tags = other

	_, err := e.sel.Run(context.Background(), config([]string{"a", "b", "c"}, 1, core.Diversity("clip", 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, e.tags.Len())

	// 写入目标上已存在时，校验阶段即失败且不取数
	calls := e.emb.calls.Load()
	_, err = e.sel.Run(context.Background(), config([]string{"a", "b", "c"}, 1, core.Diversity("clip", 1)))
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Equal(t, calls, e.emb.calls.Load())
}

func TestRun_Metrics(t *testing.T) {
	e := newEnv(t)
	reg := prometheus.NewRegistry()
	e.sel.Metrics = NewMetrics(reg)

	_, err := e.sel.Run(context.Background(), config([]string{"a", "b", "c"}, 2, core.Diversity("clip", 1)))
	require.NoError(t, err)

	tooMany := config([]string{"a"}, 2, core.Diversity("clip", 1))
	tooMany.ResultTagName = "picked-2"
	_, err = e.sel.Run(context.Background(), tooMany)
	require.Error(t, err)
	assert.True(t, core.IsCapacityError(err))

	// 复用已写入的 tag 名
	_, err = e.sel.Run(context.Background(), config([]string{"a", "b", "c"}, 1, core.Diversity("clip", 1)))
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(e.sel.Metrics.runs.WithLabelValues(modeRun, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.sel.Metrics.runs.WithLabelValues(modeRun, "capacity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.sel.Metrics.runs.WithLabelValues(modeRun, "configuration")))
	assert.Equal(t, 1, testutil.CollectAndCount(e.sel.Metrics.selected))
}

func TestSnapshotPool(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, snapshotPool([]string{"b", "", "a", "b", "c", "a"}))
	assert.Empty(t, snapshotPool(nil))
}
