package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/curakit/core"
	"github.com/rushteam/curakit/resolver"
)

const requestYAML = `
selection:
  scope: dataset-42
  tag: diverse-3
  k: 3
  pool: [s1, s2, s3, s4]
  strategies:
    - type: diversity
      config:
        embedding_space: clip
        strength: 2
    - type: weighting
      config:
        source: uncertainty
        expr: "1.0 / (1.0 + value)"
    - type: class_balance
      config:
        label_set: species
        target: [1, 0.5]
        strength: 0.5
`

const requestJSON = `{
  "selection": {
    "scope": "dataset-42",
    "tag": "diverse-3",
    "k": 3,
    "pool": ["s1", "s2", "s3", "s4"],
    "strategies": [
      {"type": "diversity", "config": {"embedding_space": "clip", "strength": 2}},
      {"type": "weighting", "config": {"source": "uncertainty", "expr": "1.0 / (1.0 + value)"}},
      {"type": "class_balance", "config": {"label_set": "species", "target": [1, 0.5], "strength": 0.5}}
    ]
  }
}`

func assertRequest(t *testing.T, cfg *core.SelectionConfig) {
	t.Helper()
	assert.Equal(t, "dataset-42", cfg.Scope)
	assert.Equal(t, "diverse-3", cfg.ResultTagName)
	assert.Equal(t, 3, cfg.K)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, cfg.CandidatePool)
	require.Len(t, cfg.Strategies, 3)

	assert.Equal(t, core.Diversity("clip", 2), cfg.Strategies[0])
	assert.Equal(t, core.WeightingExpr("uncertainty", "1.0 / (1.0 + value)", core.DefaultStrength), cfg.Strategies[1])
	assert.Equal(t, core.ClassBalance("species", []float64{1, 0.5}, 0.5), cfg.Strategies[2])
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(requestYAML), 0o600))

	req, err := LoadFromYAML(path)
	require.NoError(t, err)
	cfg, err := req.ToSelectionConfig()
	require.NoError(t, err)
	assertRequest(t, cfg)
}

func TestLoadFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(requestJSON), 0o600))

	req, err := LoadFromJSON(path)
	require.NoError(t, err)
	cfg, err := req.ToSelectionConfig()
	require.NoError(t, err)
	assertRequest(t, cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"selection": [`))
	assert.True(t, core.IsConfigurationError(err))

	_, err = ParseYAML([]byte("selection: [unterminated"))
	assert.True(t, core.IsConfigurationError(err))
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		cfg     map[string]any
		want    core.Strategy
		wantErr string
	}{
		{
			name: "diversity defaults",
			typ:  "diversity",
			want: core.Diversity("", core.DefaultStrength),
		},
		{
			name: "explicit zero strength passes through",
			typ:  "weighting",
			cfg:  map[string]any{"source": "quality", "strength": 0},
			want: core.Weighting("quality", 0),
		},
		{
			name: "null strength defaults",
			typ:  "weighting",
			cfg:  map[string]any{"source": "quality", "strength": nil},
			want: core.Weighting("quality", core.DefaultStrength),
		},
		{
			name: "negative strength passes through",
			typ:  "diversity",
			cfg:  map[string]any{"strength": -1.5},
			want: core.Diversity("", -1.5),
		},
		{
			name: "class balance without target",
			typ:  "class_balance",
			cfg:  map[string]any{"label_set": "species"},
			want: core.ClassBalance("species", nil, core.DefaultStrength),
		},
		{name: "unknown type", typ: "novelty", wantErr: "supported: [diversity weighting class_balance]"},
		{name: "weighting without source", typ: "weighting", cfg: map[string]any{}, wantErr: "source"},
		{name: "class balance without label set", typ: "class_balance", cfg: map[string]any{}, wantErr: "label_set"},
		{name: "non-numeric strength", typ: "diversity", cfg: map[string]any{"strength": "high"}, wantErr: "strength"},
		{
			name:    "non-numeric target",
			typ:     "class_balance",
			cfg:     map[string]any{"label_set": "species", "target": []any{1, "x"}},
			wantErr: "target",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.typ, tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, core.IsConfigurationError(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToSelectionConfig_ReportsStrategyIndex(t *testing.T) {
	req, err := ParseYAML([]byte(`
selection:
  tag: t
  k: 1
  strategies:
    - type: diversity
    - type: unknown
`))
	require.NoError(t, err)
	_, err = req.ToSelectionConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategies[1]")
	assert.True(t, core.IsConfigurationError(err))
}

func TestToSelectionConfig_ZeroStrengthIsRejected(t *testing.T) {
	req, err := ParseYAML([]byte(`
selection:
  tag: t
  k: 1
  pool: [a]
  strategies:
    - type: diversity
      config: {strength: 0}
`))
	require.NoError(t, err)
	cfg, err := req.ToSelectionConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Strategies[0].Strength())

	err = (&resolver.Resolver{}).Validate(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "strength must be > 0")
}
