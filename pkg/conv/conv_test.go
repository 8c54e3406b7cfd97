package conv

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{"float64", 1.5, 1.5, true},
		{"float32", float32(2), 2, true},
		{"int", 3, 3, true},
		{"uint8", uint8(4), 4, true},
		{"json number", json.Number("5.25"), 5.25, true},
		{"bad json number", json.Number("x"), 0, false},
		{"string", "1.0", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToNumber(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := map[string]any{
		"space":    "clip",
		"strength": 2,
		"target":   []any{0.5, 1},
		"bad":      []any{"a"},
	}
	assert.Equal(t, "clip", ConfigGet(cfg, "space", ""))
	assert.Equal(t, "dflt", ConfigGet(cfg, "missing", "dflt"))
	assert.Equal(t, 2.0, ConfigGetFloat64(cfg, "strength", 1))
	assert.Equal(t, 1.0, ConfigGetFloat64(cfg, "space", 1))

	target, ok := SliceAnyToFloat64(cfg["target"])
	assert.True(t, ok)
	assert.Equal(t, []float64{0.5, 1}, target)

	_, ok = SliceAnyToFloat64(cfg["bad"])
	assert.False(t, ok)

	assert.Equal(t, []string{"a"}, SliceAnyToString(cfg["bad"]))
}
