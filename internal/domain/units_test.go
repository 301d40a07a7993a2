package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertUnit(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from     string
		to       string
		expected float64
	}{
		{name: "kg to g", value: 2, from: "kg", to: "g", expected: 2000},
		{name: "g to kg", value: 500, from: "g", to: "kg", expected: 0.5},
		{name: "l to ml", value: 1.5, from: "l", to: "ml", expected: 1500},
		{name: "ml to l", value: 250, from: "ml", to: "l", expected: 0.25},
		{name: "case insensitive", value: 3, from: "KG", to: "G", expected: 3000},
		{name: "identical units", value: 7, from: "unidad", to: "UNIDAD", expected: 7},
		{name: "unknown pair passes through", value: 5, from: "barrel", to: "firkin", expected: 5},
		{name: "cross dimension passes through", value: 4, from: "kg", to: "ml", expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConvertUnit(tt.value, tt.from, tt.to), 1e-9)
		})
	}
}

func TestConvertChecked_ReportsUnsupportedPair(t *testing.T) {
	v, err := ConvertChecked(5, "barrel", "firkin")
	assert.ErrorIs(t, err, ErrUnsupportedConversion)
	assert.Equal(t, 5.0, v)

	v, err = ConvertChecked(1, "kg", "g")
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, v)
}

func TestConvertUnit_RoundTrip(t *testing.T) {
	for _, v := range []float64{0.001, 0.25, 1, 3.75, 12.5, 1000, 98765.4321} {
		back := ConvertUnit(ConvertUnit(v, "kg", "g"), "g", "kg")
		assert.InDelta(t, v, back, 1e-9, "value %v", v)

		back = ConvertUnit(ConvertUnit(v, "l", "ml"), "ml", "l")
		assert.InDelta(t, v, back, 1e-9, "value %v", v)
	}
}
