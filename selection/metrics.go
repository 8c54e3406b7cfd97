package selection

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rushteam/curakit/core"
)

// Metrics 记录选择运行情况。nil *Metrics 可安全使用（不记录）。
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	selected prometheus.Histogram
}

// NewMetrics 在 reg 上注册选择相关指标；reg 为 nil 时返回 nil。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	return &Metrics{
		runs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "curakit",
			Name:      "selection_runs_total",
			Help:      "Number of selection runs by mode and outcome",
		}, []string{"mode", "outcome"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "curakit",
			Name:      "selection_duration_seconds",
			Help:      "Wall time of a selection run, from validation to tag write",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
		selected: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "curakit",
			Name:      "selection_selected_samples",
			Help:      "Number of samples selected by successful runs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

func (m *Metrics) observe(mode string, took time.Duration, res *core.SelectionResult, err error) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode, outcome(err)).Inc()
	m.duration.WithLabelValues(mode).Observe(took.Seconds())
	if err == nil && res != nil {
		m.selected.Observe(float64(len(res.SampleIDs)))
	}
}

// outcome 把错误归类为低基数的标签值。
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case core.IsConfigurationError(err):
		return "configuration"
	case core.IsCapacityError(err):
		return "capacity"
	case core.IsDataError(err):
		return "data"
	case core.IsShapeError(err):
		return "shape"
	default:
		return "error"
	}
}
