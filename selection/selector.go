// Package selection 负责一次完整的选择运行：
// 校验配置 → 快照候选池 → 容量检查 → 解析策略 → 内核选择 → 原子写入结果 tag。
//
// 整个过程要么写入恰好一个新 tag，要么不留下任何副作用；已有的 tag 与样本永不修改。
package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rushteam/curakit/core"
	"github.com/rushteam/curakit/kernel"
	"github.com/rushteam/curakit/resolver"
)

const (
	modeRun     = "run"
	modePreview = "preview"
)

// Selector 是选择编排器。
//
// 使用示例：
//
//	sel := &selection.Selector{
//		Resolver: &resolver.Resolver{Embeddings: emb, Metadata: meta, Annotations: ann},
//		Tags:     store.NewMemoryTagStore(),
//		Logger:   logrus.New(),
//	}
//	res, err := sel.Run(ctx, cfg)
type Selector struct {
	Resolver *resolver.Resolver

	// Tags 是结果写入目标；非 nil 时 tag 存在性检查也只查它，覆盖 Resolver.Tags
	Tags core.TagStore

	Logger  logrus.FieldLogger
	Metrics *Metrics

	// KernelOptions 透传给 kernel.Select（并行度等，不影响结果）
	KernelOptions []kernel.Option

	// Now 返回 tag 创建时间，默认 time.Now
	Now func() time.Time
}

func (s *Selector) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s *Selector) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run 执行选择并把结果写为新 tag。
func (s *Selector) Run(ctx context.Context, cfg *core.SelectionConfig) (*core.SelectionResult, error) {
	start := time.Now()
	res, err := s.run(ctx, cfg, true)
	s.Metrics.observe(modeRun, time.Since(start), res, err)
	return res, err
}

// Preview 执行同样的校验与选择，但不写 tag。
func (s *Selector) Preview(ctx context.Context, cfg *core.SelectionConfig) (*core.SelectionResult, error) {
	start := time.Now()
	res, err := s.run(ctx, cfg, false)
	s.Metrics.observe(modePreview, time.Since(start), res, err)
	return res, err
}

func (s *Selector) run(ctx context.Context, cfg *core.SelectionConfig, commit bool) (*core.SelectionResult, error) {
	if s.Resolver == nil {
		return nil, core.NewConfigurationError(core.ModuleSelection, "selector has no resolver")
	}
	if commit && s.Tags == nil {
		return nil, core.NewConfigurationError(core.ModuleSelection, "selector has no tag store")
	}

	// 存在性检查与写入必须落在同一个 TagStore；Resolver.Tags 仅在 Selector 未配置 Tags 时（Preview）使用
	r := *s.Resolver
	if s.Tags != nil {
		r.Tags = s.Tags
	}
	if r.Logger == nil {
		r.Logger = s.Logger
	}

	// 1. 校验
	if err := r.Validate(ctx, cfg); err != nil {
		return nil, err
	}

	// 2. 候选池快照
	pool := snapshotPool(cfg.CandidatePool)
	log := s.logger().WithFields(logrus.Fields{
		"scope":      cfg.Scope,
		"tag":        cfg.ResultTagName,
		"k":          cfg.K,
		"n":          len(pool),
		"strategies": len(cfg.Strategies),
	})

	// 3. 容量检查：不截断，直接报告
	if cfg.K > len(pool) {
		err := core.NewCapacityError(core.ModuleSelection, cfg.K, len(pool))
		log.WithError(err).Warn("selection rejected")
		return nil, err
	}

	// 4. 解析策略
	problem, err := r.Build(ctx, cfg.Strategies, pool)
	if err != nil {
		log.WithError(err).Warn("resolve strategies failed")
		return nil, err
	}

	// 5. 内核选择
	indices, err := kernel.Select(problem, cfg.K, s.KernelOptions...)
	if err != nil {
		log.WithError(err).Error("kernel selection failed")
		return nil, err
	}
	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = pool[idx]
	}
	res := &core.SelectionResult{TagName: cfg.ResultTagName, SampleIDs: ids, Indices: indices}

	if !commit {
		log.WithField("selected", len(ids)).Debug("selection preview")
		return res, nil
	}

	// 6. 原子写入
	tag := &core.Tag{
		ID:        uuid.NewString(),
		Scope:     cfg.Scope,
		Name:      cfg.ResultTagName,
		SampleIDs: ids,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Tags.CreateTag(ctx, tag); err != nil {
		if core.IsAlreadyExists(err) {
			return nil, core.NewConfigurationError(core.ModuleSelection, "result_tag_name: tag %q already exists in scope %q",
				cfg.ResultTagName, cfg.Scope).
				WithParam("result_tag_name", cfg.ResultTagName).
				WithCause(err)
		}
		log.WithError(err).Error("create result tag failed")
		return nil, fmt.Errorf("create tag %q: %w", cfg.ResultTagName, err)
	}

	log.WithFields(logrus.Fields{
		"tag_id":   tag.ID,
		"selected": len(ids),
		"backend":  s.Tags.Name(),
	}).Info("selection committed")
	return res, nil
}

// snapshotPool 复制候选池，去掉空 ID 并按首次出现去重。
func snapshotPool(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	pool := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pool = append(pool, id)
	}
	return pool
}
