package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_Eval(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		id    string
		value float64
		want  float64
	}{
		{name: "identity", expr: "value", id: "a", value: 3, want: 3},
		{name: "inverse", expr: "1.0 / (1.0 + value)", id: "a", value: 1, want: 0.5},
		{name: "id condition", expr: `id.startsWith("hard_") ? value * 2.0 : value`, id: "hard_7", value: 1.5, want: 3},
		{name: "int result", expr: "int(value) + 1", id: "a", value: 2.7, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := tr.Eval(tt.id, tt.value)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestTransform_Errors(t *testing.T) {
	_, err := Compile("")
	assert.Error(t, err)

	_, err = Compile("value +")
	assert.Error(t, err)

	tr, err := Compile(`id + "x"`)
	require.NoError(t, err)
	_, err = tr.Eval("a", 1)
	assert.Error(t, err, "string result is not a number")

	tr, err = Compile("value > 1.0")
	require.NoError(t, err)
	_, err = tr.Eval("a", 2)
	require.Error(t, err, "bool result is not a number")
	assert.Contains(t, err.Error(), "bool")
}
