package kernel

import (
	"math"

	"github.com/rushteam/curakit/core"
)

func validate(problem *core.ResolvedProblem, k int) error {
	n := problem.N
	if n < 0 {
		return core.NewShapeError(core.ModuleKernel, "n: must be >= 0, got %d", n)
	}
	if k <= 0 {
		return core.NewConfigurationError(core.ModuleKernel, "k: must be > 0, got %d", k).
			WithParam("k", k)
	}
	if k > n {
		return core.NewConfigurationError(core.ModuleKernel, "k: cannot select %d items from %d candidates", k, n).
			WithParam("requested", k).
			WithParam("available", n)
	}

	for t := range problem.Terms {
		term := &problem.Terms[t]
		switch term.Kind {
		case core.KindDiversity, core.KindWeighting, core.KindClassBalance:
		default:
			return core.NewConfigurationError(core.ModuleKernel, "terms[%d]: unknown strategy kind %q", t, term.Kind)
		}
		if !(term.Strength > 0) || math.IsInf(term.Strength, 0) {
			return core.NewConfigurationError(core.ModuleKernel, "terms[%d] %s: strength must be a positive finite number, got %g",
				t, term.Kind, term.Strength)
		}
		if rows := term.Rows(); rows != n {
			return core.NewShapeError(core.ModuleKernel, "terms[%d] %s: row count %d does not match n=%d", t, term.Kind, rows, n).
				WithParam("rows", rows).
				WithParam("n", n)
		}

		switch term.Kind {
		case core.KindDiversity:
			if err := checkMatrix(t, term, -1); err != nil {
				return err
			}
		case core.KindWeighting:
			for i, v := range term.Values {
				if !(v > 0) || math.IsInf(v, 0) {
					return core.NewShapeError(core.ModuleKernel, "terms[%d] weighting: value at row %d must be a positive finite number, got %g", t, i, v)
				}
			}
		case core.KindClassBalance:
			if len(term.Target) == 0 {
				return core.NewShapeError(core.ModuleKernel, "terms[%d] class_balance: target distribution is empty", t)
			}
			for _, v := range term.Target {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return core.NewShapeError(core.ModuleKernel, "terms[%d] class_balance: target contains invalid value %g", t, v)
				}
			}
			if err := checkMatrix(t, term, len(term.Target)); err != nil {
				return err
			}
			for i, row := range term.Vectors {
				for _, c := range row {
					if c < 0 {
						return core.NewShapeError(core.ModuleKernel, "terms[%d] class_balance: row %d has negative count %g", t, i, c)
					}
				}
			}
		}
	}
	return nil
}

// checkMatrix 校验 Vectors 不参差、数值有限；width < 0 表示以第一行为准。
func checkMatrix(t int, term *core.ResolvedTerm, width int) error {
	if len(term.Vectors) == 0 {
		return nil
	}
	if width < 0 {
		width = len(term.Vectors[0])
	}
	if width == 0 {
		return core.NewShapeError(core.ModuleKernel, "terms[%d] %s: rows have zero width", t, term.Kind)
	}
	for i, row := range term.Vectors {
		if len(row) != width {
			return core.NewShapeError(core.ModuleKernel, "terms[%d] %s: jagged array, row %d has width %d, want %d",
				t, term.Kind, i, len(row), width)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewShapeError(core.ModuleKernel, "terms[%d] %s: row %d contains non-finite value", t, term.Kind, i)
			}
		}
	}
	return nil
}
