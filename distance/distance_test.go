package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	assert.InDelta(t, 32.0, Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.InDelta(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}), 1e-6)
}

func TestSquaredL2(t *testing.T) {
	assert.InDelta(t, 27.0, SquaredL2([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.InDelta(t, 0.0, SquaredL2([]float32{1, 2}, []float32{1, 2}), 1e-6)
}

func TestNormalizeL2(t *testing.T) {
	v, ok := NormalizeL2Copy([]float32{3, 4})
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, math.Sqrt(float64(Dot(v, v))), 1e-6)

	_, ok = NormalizeL2Copy([]float32{0, 0, 0})
	assert.False(t, ok, "zero vector has no direction")

	_, ok = NormalizeL2Copy(nil)
	assert.False(t, ok)
}

func TestProvider_MonotonicOrientation(t *testing.T) {
	// Every metric must score the closer pair higher.
	q := []float32{1, 0}
	near := []float32{0.9, 0.1}
	far := []float32{-1, 0}

	for _, m := range []Metric{MetricCosine, MetricDot, MetricL2} {
		f, err := Provider(m)
		require.NoError(t, err, m.String())
		assert.Greater(t, f(q, near), f(q, far), m.String())
	}

	_, err := Provider(Metric(42))
	require.Error(t, err)
}
