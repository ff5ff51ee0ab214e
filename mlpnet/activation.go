package mlp

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// crossEntropyEpsilon clamps outputs away from 0 and 1 so log never sees 0.
// It is applied in float64 because 1-1e-15 rounds to 1 in float32.
const crossEntropyEpsilon = 1e-15

// Activation is the nonlinearity applied by a layer. The set is closed.
type Activation byte

const (
	Identity Activation = iota
	Sigmoid
	Rectifier
	Softmax
	MAXACTIVATION
)

func (a Activation) String() string {
	switch a {
	case Identity:
		return "identity"
	case Sigmoid:
		return "sigmoid"
	case Rectifier:
		return "rectifier"
	case Softmax:
		return "softmax"
	}
	return fmt.Sprintf("Activation(%d)", byte(a))
}

// ParseActivation is the inverse of String.
func ParseActivation(s string) (Activation, error) {
	for a := Identity; a < MAXACTIVATION; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return MAXACTIVATION, errors.Errorf("unknown activation %q", s)
}

// IsValid reports whether a is one of the known activations.
func (a Activation) IsValid() bool { return a < MAXACTIVATION }

// Differentiable reports whether the activation has a local derivative that can be
// applied on its own. Softmax does not: its gradient is folded into the loss gradient.
func (a Activation) Differentiable() bool { return a != Softmax }

// Activate applies the activation to z in place.
func (a Activation) Activate(z []float32) {
	switch a {
	case Sigmoid:
		for i, v := range z {
			z[i] = Logistic(v)
		}
	case Rectifier:
		for i, v := range z {
			z[i] = Rectify(v)
		}
	case Softmax:
		StableSoftmax(z, z)
	}
}

// Derivative returns the derivative of the activation expressed in terms of the
// activation's output y, which is what a layer caches after a forward pass.
func (a Activation) Derivative(y float32) float32 {
	switch a {
	case Sigmoid:
		return LogisticGrad(y)
	case Rectifier:
		// y > 0 iff the pre-activation was > 0
		return RectifyGrad(y)
	case Softmax:
		panic("softmax has no standalone derivative")
	}
	return 1
}

// Logistic is 1/(1+e^-x).
func Logistic(x float32) float32 { return 1 / (1 + math32.Exp(-x)) }

// LogisticGrad is the derivative of the logistic function given its output y.
func LogisticGrad(y float32) float32 { return y * (1 - y) }

// Rectify is max(x, 0).
func Rectify(x float32) float32 { return math32.Max(x, 0) }

// RectifyGrad is 1 for x > 0 and 0 otherwise.
func RectifyGrad(x float32) float32 {
	if x > 0 {
		return 1
	}
	return 0
}

// StableSoftmax writes softmax(src) into dst and returns dst. The max entry is
// subtracted before exponentiating. dst may alias src; if dst is too short a new
// slice is allocated.
func StableSoftmax(dst, src []float32) []float32 {
	if len(dst) < len(src) {
		dst = make([]float32, len(src))
	}
	dst = dst[:len(src)]
	if len(src) == 0 {
		return dst
	}
	max := src[0]
	for _, v := range src[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range src {
		e := math32.Exp(v - max)
		dst[i] = e
		sum += e
	}
	for i := range dst {
		dst[i] /= sum
	}
	return dst
}

// CrossEntropy is -(t*log(o) + (1-t)*log(1-o)) with o clamped to [ε, 1-ε].
func CrossEntropy(output, target float32) float32 {
	o := math.Max(crossEntropyEpsilon, math.Min(1-crossEntropyEpsilon, float64(output)))
	t := float64(target)
	return float32(-(t*math.Log(o) + (1-t)*math.Log(1-o)))
}

// MeanCrossEntropy averages CrossEntropy over every output.
func MeanCrossEntropy(output, target []float32) (float32, error) {
	if len(output) != len(target) {
		return 0, ShapeMismatch{Layer: -1, What: "target", Want: len(output), Got: len(target)}
	}
	if len(output) == 0 {
		return 0, errors.WithStack(ErrEmptyVector)
	}
	var sum float64
	for i := range output {
		sum += float64(CrossEntropy(output[i], target[i]))
	}
	return float32(sum / float64(len(output))), nil
}

// Argmax returns the index of the largest value. Ties go to the lowest index.
func Argmax(a []float32) (int, error) {
	if len(a) == 0 {
		return -1, errors.WithStack(ErrEmptyVector)
	}
	var idx int
	for i, v := range a[1:] {
		if v > a[idx] {
			idx = i + 1
		}
	}
	return idx, nil
}
