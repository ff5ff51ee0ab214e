package mlp

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogisticGrad(t *testing.T) {
	for _, x := range []float64{-10, -1, 0, 1, 10} {
		e := math.Exp(-x)
		analytic := e / ((1 + e) * (1 + e))
		got := LogisticGrad(Logistic(float32(x)))
		assert.InDelta(t, analytic, float64(got), 1e-6, "derivative at %v", x)
	}
}

func TestRectify(t *testing.T) {
	assert.Equal(t, float32(0), Rectify(-3))
	assert.Equal(t, float32(2.5), Rectify(2.5))
	assert.Equal(t, float32(0), RectifyGrad(0))
	assert.Equal(t, float32(1), RectifyGrad(0.1))
	assert.Equal(t, float32(0), Rectifier.Derivative(0))
	assert.Equal(t, float32(1), Rectifier.Derivative(3))
}

func TestStableSoftmax(t *testing.T) {
	cases := [][]float32{
		{1, 2, 3},
		{0, 0, 0, 0},
		{1000, 1001, 999},  // would overflow without the max shift
		{-1000, -999, -50}, // would underflow to 0/0
	}
	for _, c := range cases {
		out := StableSoftmax(nil, c)
		require.Len(t, out, len(c))
		var sum float64
		for _, v := range out {
			assert.False(t, math.IsNaN(float64(v)), "%v: NaN in %v", c, out)
			assert.GreaterOrEqual(t, v, float32(0))
			sum += float64(v)
		}
		assert.InDelta(t, 1, sum, 1e-6, "%v sums to %v", c, sum)
	}

	in := []float32{1, 2, 3}
	StableSoftmax(in, in)
	assert.InDelta(t, 0.66524, in[2], 1e-5)
}

func TestActivate(t *testing.T) {
	z := []float32{-1, 0, 2}
	Identity.Activate(z)
	assert.Equal(t, []float32{-1, 0, 2}, z)

	Rectifier.Activate(z)
	assert.Equal(t, []float32{0, 0, 2}, z)

	z = []float32{0, 0}
	Sigmoid.Activate(z)
	assert.Equal(t, []float32{0.5, 0.5}, z)

	assert.True(t, Sigmoid.Differentiable())
	assert.False(t, Softmax.Differentiable())
	assert.Equal(t, float32(1), Identity.Derivative(42))
}

func TestCrossEntropy(t *testing.T) {
	// clamping keeps log(0) out
	for _, c := range []struct{ o, t float32 }{{0, 1}, {1, 0}, {0, 0}, {1, 1}} {
		got := CrossEntropy(c.o, c.t)
		assert.False(t, math.IsInf(float64(got), 0), "%v", c)
		assert.False(t, math.IsNaN(float64(got)), "%v", c)
	}
	assert.InDelta(t, -math.Log(0.5), CrossEntropy(0.5, 1), 1e-6)
	assert.InDelta(t, 34.54, CrossEntropy(0, 1), 0.01)

	loss, err := MeanCrossEntropy([]float32{0.5, 0.5}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.5), loss, 1e-6)

	_, err = MeanCrossEntropy([]float32{0.5}, []float32{1, 0})
	assert.True(t, IsShapeMismatch(err))
}

func TestArgmax(t *testing.T) {
	idx, err := Argmax([]float32{0.1, 0.7, 0.2})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = Argmax([]float32{0.4, 0.1, 0.4})
	require.NoError(t, err)
	assert.Equal(t, 0, idx, "ties go to the lowest index")

	_, err = Argmax(nil)
	assert.Error(t, err)
	assert.Equal(t, ErrEmptyVector, errors.Cause(err))
}

func TestParseActivation(t *testing.T) {
	for a := Identity; a < MAXACTIVATION; a++ {
		got, err := ParseActivation(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseActivation("gelu")
	assert.Error(t, err)
}
