package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/curakit/core"
)

// scorer 为候选计算某个 term 的原始分（越大越好）。
//
// score 与 observe 会在互不重叠的 cands 切片上并发调用，只能写自己负责的位置；
// commit 串行调用，用于更新跨候选的共享状态。
type scorer interface {
	weight() float64
	score(cands []int, out []float64)
	observe(picked int, cands []int)
	commit(picked int)
}

func buildScorers(problem *core.ResolvedProblem) ([]scorer, error) {
	scorers := make([]scorer, 0, len(problem.Terms))
	var weighting *weightingScorer

	for t := range problem.Terms {
		term := &problem.Terms[t]
		switch term.Kind {
		case core.KindDiversity:
			scorers = append(scorers, newDiversityScorer(term))
		case core.KindWeighting:
			if weighting == nil {
				weighting = &weightingScorer{logw: make([]float64, problem.N)}
				scorers = append(scorers, weighting)
			}
			weighting.add(term)
		case core.KindClassBalance:
			scorers = append(scorers, newClassBalanceScorer(term))
		default:
			return nil, core.NewConfigurationError(core.ModuleKernel, "terms[%d]: unknown strategy kind %q", t, term.Kind)
		}
	}
	return scorers, nil
}

// diversityScorer 的原始分是候选到已选集合的最小欧氏距离。
// 尚未选择任何样本时，取候选到全体中心的距离，即优先最“极端”的点。
type diversityScorer struct {
	strength float64
	vectors  [][]float64
	minDist  []float64
	centroid []float64
	started  bool
}

func newDiversityScorer(term *core.ResolvedTerm) *diversityScorer {
	n := len(term.Vectors)
	s := &diversityScorer{
		strength: term.Strength,
		vectors:  term.Vectors,
		minDist:  make([]float64, n),
	}
	for i := range s.minDist {
		s.minDist[i] = math.Inf(1)
	}
	if n > 0 {
		s.centroid = make([]float64, len(term.Vectors[0]))
		for _, v := range term.Vectors {
			floats.Add(s.centroid, v)
		}
		floats.Scale(1/float64(n), s.centroid)
	}
	return s
}

func (s *diversityScorer) weight() float64 { return s.strength }

func (s *diversityScorer) score(cands []int, out []float64) {
	if !s.started {
		for j, i := range cands {
			out[j] = floats.Distance(s.vectors[i], s.centroid, 2)
		}
		return
	}
	for j, i := range cands {
		out[j] = s.minDist[i]
	}
}

func (s *diversityScorer) observe(picked int, cands []int) {
	p := s.vectors[picked]
	for _, i := range cands {
		if d := floats.Distance(s.vectors[i], p, 2); d < s.minDist[i] {
			s.minDist[i] = d
		}
	}
}

func (s *diversityScorer) commit(int) { s.started = true }

// weightingScorer 的原始分是 ln(w) 按 strength 加权求和，即 prod(w^strength)，
// 多个权重因此按乘法组合；合并后的 term 以各 strength 之和参与总分。
type weightingScorer struct {
	logw     []float64
	strength float64
}

func (s *weightingScorer) add(term *core.ResolvedTerm) {
	for i, v := range term.Values {
		s.logw[i] += term.Strength * math.Log(v)
	}
	s.strength += term.Strength
}

func (s *weightingScorer) weight() float64 { return s.strength }

func (s *weightingScorer) score(cands []int, out []float64) {
	for j, i := range cands {
		out[j] = s.logw[i]
	}
}

func (s *weightingScorer) observe(int, []int) {}
func (s *weightingScorer) commit(int)         {}

// classBalanceScorer 的原始分是 -L1(target, normalize(cum + counts[i]))。
type classBalanceScorer struct {
	strength float64
	counts   [][]float64
	rowSum   []float64
	target   []float64
	cum      []float64
	cumSum   float64
}

func newClassBalanceScorer(term *core.ResolvedTerm) *classBalanceScorer {
	target := make([]float64, len(term.Target))
	copy(target, term.Target)
	if sum := floats.Sum(target); sum > 0 {
		floats.Scale(1/sum, target)
	}

	s := &classBalanceScorer{
		strength: term.Strength,
		counts:   term.Vectors,
		rowSum:   make([]float64, len(term.Vectors)),
		target:   target,
		cum:      make([]float64, len(target)),
	}
	for i, row := range term.Vectors {
		s.rowSum[i] = floats.Sum(row)
	}
	return s
}

func (s *classBalanceScorer) weight() float64 { return s.strength }

func (s *classBalanceScorer) score(cands []int, out []float64) {
	for j, i := range cands {
		row := s.counts[i]
		total := s.cumSum + s.rowSum[i]
		var dist float64
		for l, want := range s.target {
			var got float64
			if total > 0 {
				got = (s.cum[l] + row[l]) / total
			}
			dist += math.Abs(want - got)
		}
		out[j] = -dist
	}
}

func (s *classBalanceScorer) observe(int, []int) {}

func (s *classBalanceScorer) commit(picked int) {
	floats.Add(s.cum, s.counts[picked])
	s.cumSum += s.rowSum[picked]
}
