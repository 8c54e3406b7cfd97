// Package kernel 实现多目标贪心子集选择内核。
//
// 内核是纯函数：数组进，有序索引出，不做任何 I/O。
// 每一步对 remaining 中的每个候选计算各 term 的原始分，
// 按步在 remaining 上做 min-max 归一化到 [0,1]，
// 乘以 strength 后求和，取最大者（并列时取最小索引）。
package kernel

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/curakit/core"
)

// DefaultParallelThreshold 是 remaining 数量达到该值时才启用并发打分。
const DefaultParallelThreshold = 4096

type options struct {
	parallelism int
	threshold   int
}

// Option 配置内核的执行方式，不影响结果。
type Option func(*options)

// WithParallelism 设置每步打分的最大并发数（<= 1 表示串行）。
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithParallelThreshold 设置启用并发打分的 remaining 最小规模。
func WithParallelThreshold(n int) Option {
	return func(o *options) {
		o.threshold = n
	}
}

// Select 在 problem 上贪心选出 k 个互不相同的索引，按选取顺序返回。
//
// 错误：
//   - k <= 0 或 k > N：CONFIGURATION
//   - 行数不等于 N、数组参差不齐、数值非有限：SHAPE
func Select(problem *core.ResolvedProblem, k int, opts ...Option) ([]int, error) {
	o := &options{
		parallelism: runtime.GOMAXPROCS(0),
		threshold:   DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(o)
	}

	if problem == nil {
		return nil, core.NewShapeError(core.ModuleKernel, "problem is nil")
	}
	if err := validate(problem, k); err != nil {
		return nil, err
	}

	scorers, err := buildScorers(problem)
	if err != nil {
		return nil, err
	}

	n := problem.N
	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}
	selected := make([]int, 0, k)

	raw := make([][]float64, len(scorers))
	for t := range raw {
		raw[t] = make([]float64, n)
	}
	combined := make([]float64, n)

	for len(selected) < k {
		m := len(remaining)
		o.run(m, func(lo, hi int) {
			for t, s := range scorers {
				s.score(remaining[lo:hi], raw[t][lo:hi])
			}
		})

		clear(combined[:m])
		for t, s := range scorers {
			addNormalized(combined[:m], raw[t][:m], s.weight())
		}

		// remaining 保持升序，严格大于保证并列时取最小索引
		best := 0
		for j := 1; j < m; j++ {
			if combined[j] > combined[best] {
				best = j
			}
		}

		picked := remaining[best]
		selected = append(selected, picked)
		remaining = append(remaining[:best], remaining[best+1:]...)

		if len(selected) == k {
			break
		}
		o.run(len(remaining), func(lo, hi int) {
			for _, s := range scorers {
				s.observe(picked, remaining[lo:hi])
			}
		})
		for _, s := range scorers {
			s.commit(picked)
		}
	}

	return selected, nil
}

// run 把 [0, n) 切块执行 fn；块之间互不重叠，结果与串行一致。
func (o *options) run(n int, fn func(lo, hi int)) {
	p := o.parallelism
	if p <= 1 || n < o.threshold || n < 2 {
		fn(0, n)
		return
	}
	if p > n {
		p = n
	}
	chunk := (n + p - 1) / p

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// addNormalized 把 raw 在当前 remaining 上 min-max 归一化到 [0,1] 后乘以 w 累加到 dst。
// raw 全部相等时该 term 对本步没有区分度，贡献为 0。
func addNormalized(dst, raw []float64, w float64) {
	if len(raw) == 0 {
		return
	}
	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return
	}
	for j, v := range raw {
		dst[j] += w * (v - lo) / span
	}
}
