// Package resolver 把抽象的策略描述转换为内核可直接消费的数值数组。
//
// 流程：
//   - Validate：只做廉价的结构/配置检查（tag 名、k、strength、表达式编译、tag 是否已存在），不取数
//   - Build：按策略类型从 embedding / metadata / 标注提供方取数，构建 ResolvedTerm
//
// 所有数组的行顺序与候选池一致：第 i 行始终对应 pool[i]。
package resolver

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/curakit/core"
	"github.com/rushteam/curakit/pkg/conv"
	"github.com/rushteam/curakit/pkg/dsl"
)

// Resolver 持有只读的数据提供方。未使用的提供方可以为 nil，
// 但被某个策略引用时会返回 CONFIGURATION 错误。
type Resolver struct {
	Embeddings  core.EmbeddingProvider
	Metadata    core.MetadataProvider
	Annotations core.AnnotationProvider
	Tags        core.TagChecker
	Logger      logrus.FieldLogger
}

func (r *Resolver) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

// Resolve 是完整的解析流程：Validate 后在 cfg.CandidatePool 上 Build。
func (r *Resolver) Resolve(ctx context.Context, cfg *core.SelectionConfig) (*core.ResolvedProblem, error) {
	if err := r.Validate(ctx, cfg); err != nil {
		return nil, err
	}
	return r.Build(ctx, cfg.Strategies, cfg.CandidatePool)
}

// Validate 在任何取数之前完成配置检查。
// 结构性错误会被汇总成一个 CONFIGURATION 错误；全部通过后才检查 tag 是否已存在。
func (r *Resolver) Validate(ctx context.Context, cfg *core.SelectionConfig) error {
	if cfg == nil {
		return core.NewConfigurationError(core.ModuleResolver, "selection config is nil")
	}

	var merr *multierror.Error
	if strings.TrimSpace(cfg.ResultTagName) == "" {
		merr = multierror.Append(merr, fmt.Errorf("result_tag_name: must not be empty"))
	}
	if cfg.K <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("k: must be > 0, got %d", cfg.K))
	}
	if len(cfg.Strategies) == 0 {
		merr = multierror.Append(merr, fmt.Errorf("strategies: at least one strategy is required"))
	}
	for i, s := range cfg.Strategies {
		if err := validateStrategy(i, s); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return core.NewConfigurationError(core.ModuleResolver, "invalid selection config").WithCause(err)
	}

	if r.Tags == nil {
		return nil
	}
	exists, err := r.Tags.TagExists(ctx, cfg.Scope, cfg.ResultTagName)
	if err != nil {
		return fmt.Errorf("check result tag %q: %w", cfg.ResultTagName, err)
	}
	if exists {
		return core.NewConfigurationError(core.ModuleResolver, "result_tag_name: tag %q already exists in scope %q",
			cfg.ResultTagName, cfg.Scope).
			WithParam("result_tag_name", cfg.ResultTagName)
	}
	return nil
}

func validStrength(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func validateStrategy(i int, s core.Strategy) error {
	switch s.Kind {
	case core.KindDiversity:
		if s.Diversity == nil {
			return fmt.Errorf("strategies[%d]: kind %q has no diversity descriptor", i, s.Kind)
		}
	case core.KindWeighting:
		w := s.Weighting
		if w == nil {
			return fmt.Errorf("strategies[%d]: kind %q has no weighting descriptor", i, s.Kind)
		}
		if w.Source == "" {
			return fmt.Errorf("strategies[%d] weighting: source metadata key must not be empty", i)
		}
		if w.Expr != "" {
			if _, err := dsl.Compile(w.Expr); err != nil {
				return fmt.Errorf("strategies[%d] weighting: expr %q: %w", i, w.Expr, err)
			}
		}
	case core.KindClassBalance:
		cb := s.ClassBalance
		if cb == nil {
			return fmt.Errorf("strategies[%d]: kind %q has no class_balance descriptor", i, s.Kind)
		}
		if cb.LabelSet == "" {
			return fmt.Errorf("strategies[%d] class_balance: label_set must not be empty", i)
		}
		var sum float64
		for l, v := range cb.Target {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("strategies[%d] class_balance: target[%d] must be a non-negative number, got %g", i, l, v)
			}
			sum += v
		}
		if len(cb.Target) > 0 && sum <= 0 {
			return fmt.Errorf("strategies[%d] class_balance: target distribution sums to zero", i)
		}
	default:
		return fmt.Errorf("strategies[%d]: unknown strategy kind %q (supported: %v)", i, s.Kind, core.Kinds())
	}

	if strength := s.Strength(); !validStrength(strength) {
		return fmt.Errorf("strategies[%d] %s: strength must be > 0, got %g", i, s.Kind, strength)
	}
	return nil
}

// Build 为每个策略取数并构建 ResolvedTerm；各策略并发取数，term 顺序与策略顺序一致。
func (r *Resolver) Build(ctx context.Context, strategies []core.Strategy, pool []string) (*core.ResolvedProblem, error) {
	n := len(pool)
	terms := make([]core.ResolvedTerm, len(strategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range strategies {
		g.Go(func() error {
			term, err := r.resolveTerm(gctx, i, s, pool)
			if err != nil {
				return err
			}
			terms[i] = term
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range terms {
		if rows := terms[i].Rows(); rows != n {
			return nil, core.NewShapeError(core.ModuleResolver, "strategies[%d] %s: resolved %d rows, candidate pool has %d",
				i, terms[i].Kind, rows, n)
		}
	}

	r.logger().WithFields(logrus.Fields{
		"n":     n,
		"terms": len(terms),
	}).Debug("resolved selection problem")

	return &core.ResolvedProblem{N: n, Terms: terms}, nil
}

func (r *Resolver) resolveTerm(ctx context.Context, i int, s core.Strategy, pool []string) (core.ResolvedTerm, error) {
	switch s.Kind {
	case core.KindDiversity:
		return r.resolveDiversity(ctx, i, s.Diversity, pool)
	case core.KindWeighting:
		return r.resolveWeighting(ctx, i, s.Weighting, pool)
	case core.KindClassBalance:
		return r.resolveClassBalance(ctx, i, s.ClassBalance, pool)
	default:
		return core.ResolvedTerm{}, core.NewConfigurationError(core.ModuleResolver,
			"strategies[%d]: unknown strategy kind %q (supported: %v)", i, s.Kind, core.Kinds())
	}
}

func checkRows(i int, kind core.StrategyKind, rows, n int) error {
	if rows != n {
		return core.NewShapeError(core.ModuleResolver, "strategies[%d] %s: provider returned %d rows, candidate pool has %d",
			i, kind, rows, n).
			WithParam("rows", rows).
			WithParam("n", n)
	}
	return nil
}

// wrapProviderErr 保留领域错误的分类，其他错误加上策略位置。
func wrapProviderErr(i int, kind core.StrategyKind, err error) error {
	if core.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("strategies[%d] %s: %w", i, kind, err)
}

func (r *Resolver) resolveDiversity(ctx context.Context, i int, d *core.DiversityStrategy, pool []string) (core.ResolvedTerm, error) {
	if r.Embeddings == nil {
		return core.ResolvedTerm{}, core.NewConfigurationError(core.ModuleResolver, "strategies[%d] diversity: no embedding provider configured", i)
	}
	vectors, err := r.Embeddings.Embeddings(ctx, d.EmbeddingSpace, pool)
	if err != nil {
		return core.ResolvedTerm{}, wrapProviderErr(i, core.KindDiversity, err)
	}
	if err := checkRows(i, core.KindDiversity, len(vectors), len(pool)); err != nil {
		return core.ResolvedTerm{}, err
	}
	if len(vectors) > 0 {
		dim := len(vectors[0])
		if dim == 0 {
			return core.ResolvedTerm{}, core.NewShapeError(core.ModuleResolver, "strategies[%d] diversity: embeddings have zero dimension", i)
		}
		for row, v := range vectors {
			if len(v) != dim {
				return core.ResolvedTerm{}, core.NewShapeError(core.ModuleResolver,
					"strategies[%d] diversity: jagged embeddings, sample %q has dimension %d, want %d", i, pool[row], len(v), dim)
			}
		}
	}
	return core.ResolvedTerm{
		Kind:     core.KindDiversity,
		Strength: d.Strength,
		Source:   d.EmbeddingSpace,
		Vectors:  vectors,
	}, nil
}

func (r *Resolver) resolveWeighting(ctx context.Context, i int, w *core.WeightingStrategy, pool []string) (core.ResolvedTerm, error) {
	if r.Metadata == nil {
		return core.ResolvedTerm{}, core.NewConfigurationError(core.ModuleResolver, "strategies[%d] weighting: no metadata provider configured", i)
	}
	raw, err := r.Metadata.Metadata(ctx, w.Source, pool)
	if err != nil {
		return core.ResolvedTerm{}, wrapProviderErr(i, core.KindWeighting, err)
	}
	if err := checkRows(i, core.KindWeighting, len(raw), len(pool)); err != nil {
		return core.ResolvedTerm{}, err
	}

	var transform *dsl.Transform
	if w.Expr != "" {
		if transform, err = dsl.Compile(w.Expr); err != nil {
			return core.ResolvedTerm{}, core.NewConfigurationError(core.ModuleResolver, "strategies[%d] weighting: expr %q", i, w.Expr).WithCause(err)
		}
	}

	values := make([]float64, len(raw))
	for row, v := range raw {
		id := pool[row]
		if v == nil {
			return core.ResolvedTerm{}, core.NewDataError(core.ModuleResolver, "metadata key %q: sample %q has no value", w.Source, id)
		}
		f, ok := conv.ToNumber(v)
		if !ok {
			return core.ResolvedTerm{}, core.NewDataError(core.ModuleResolver, "metadata key %q: value for sample %q is not numeric (%T)", w.Source, id, v)
		}
		if transform != nil {
			if f, err = transform.Eval(id, f); err != nil {
				return core.ResolvedTerm{}, core.NewDataError(core.ModuleResolver, "metadata key %q: expr failed for sample %q", w.Source, id).WithCause(err)
			}
		}
		if !(f > 0) || math.IsInf(f, 0) {
			return core.ResolvedTerm{}, core.NewDataError(core.ModuleResolver,
				"metadata key %q: weight for sample %q must be a positive finite number, got %g "+
					"(weights compose multiplicatively; shift zero-valued columns with an expr such as \"value + 1e-6\")",
				w.Source, id, f).
				WithParam("sample_id", id).
				WithParam("weight", f)
		}
		values[row] = f
	}
	return core.ResolvedTerm{
		Kind:     core.KindWeighting,
		Strength: w.Strength,
		Source:   w.Source,
		Values:   values,
	}, nil
}

func (r *Resolver) resolveClassBalance(ctx context.Context, i int, cb *core.ClassBalanceStrategy, pool []string) (core.ResolvedTerm, error) {
	if r.Annotations == nil {
		return core.ResolvedTerm{}, core.NewConfigurationError(core.ModuleResolver, "strategies[%d] class_balance: no annotation provider configured", i)
	}
	labels, err := r.Annotations.Labels(ctx, cb.LabelSet)
	if err != nil {
		return core.ResolvedTerm{}, wrapProviderErr(i, core.KindClassBalance, err)
	}
	if len(labels) == 0 {
		return core.ResolvedTerm{}, core.NewDataError(core.ModuleResolver, "label set %q has no labels", cb.LabelSet)
	}

	target, err := alignTarget(cb, labels)
	if err != nil {
		return core.ResolvedTerm{}, err
	}

	counts, err := r.Annotations.LabelCounts(ctx, cb.LabelSet, pool)
	if err != nil {
		return core.ResolvedTerm{}, wrapProviderErr(i, core.KindClassBalance, err)
	}
	if err := checkRows(i, core.KindClassBalance, len(counts), len(pool)); err != nil {
		return core.ResolvedTerm{}, err
	}

	index := make(map[string]int, len(labels))
	for l, name := range labels {
		index[name] = l
	}
	vectors := make([][]float64, len(counts))
	for row, m := range counts {
		vec := make([]float64, len(labels))
		for name, c := range m {
			l, ok := index[name]
			if !ok {
				continue
			}
			if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
				return core.ResolvedTerm{}, core.NewDataError(core.ModuleResolver,
					"label set %q: sample %q has invalid count %g for label %q", cb.LabelSet, pool[row], c, name)
			}
			vec[l] = c
		}
		vectors[row] = vec
	}

	return core.ResolvedTerm{
		Kind:     core.KindClassBalance,
		Strength: cb.Strength,
		Source:   cb.LabelSet,
		Vectors:  vectors,
		Target:   target,
	}, nil
}

// alignTarget 返回与 labels 对齐、和为 1 的目标分布；未指定时为均匀分布。
func alignTarget(cb *core.ClassBalanceStrategy, labels []string) ([]float64, error) {
	target := make([]float64, len(labels))
	if len(cb.Target) == 0 {
		for l := range target {
			target[l] = 1 / float64(len(labels))
		}
		return target, nil
	}
	if len(cb.Target) != len(labels) {
		return nil, core.NewDataError(core.ModuleResolver, "label set %q: target distribution has %d entries, label set has %d labels",
			cb.LabelSet, len(cb.Target), len(labels))
	}
	var sum float64
	for _, v := range cb.Target {
		sum += v
	}
	for l, v := range cb.Target {
		target[l] = v / sum
	}
	return target, nil
}
