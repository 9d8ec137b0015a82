package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestToKnots(t *testing.T) {
	kt := ToKnots(ptr(10))
	require.NotNil(t, kt)
	assert.InDelta(t, 5.1444, *kt, 1e-9)

	assert.Nil(t, ToKnots(nil))
	assert.Nil(t, ToKnots(ptr(math.NaN())))
	assert.Nil(t, ToKnots(ptr(math.Inf(1))))
}

func TestClassifyBoundaries(t *testing.T) {
	th := Thresholds{StormKt: 34, StrongStormKt: 48}

	cases := []struct {
		name string
		kt   *float64
		want Label
	}{
		{"unknown", nil, LabelUnknown},
		{"normal", ptr(10), LabelNormal},
		{"just below storm", ptr(33.99), LabelNormal},
		{"storm boundary", ptr(34), LabelStorm},
		{"storm", ptr(47.9), LabelStorm},
		{"strong storm boundary", ptr(48), LabelStrongStorm},
		{"strong storm", ptr(60), LabelStrongStorm},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.kt, th))
		})
	}
}
