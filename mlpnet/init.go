package mlp

import (
	"math"
	"math/rand"
)

// InitFn fills into with initial parameter values for a layer with the given fan-in and fan-out.
type InitFn func(rnd *rand.Rand, fanIn, fanOut int, into []float32)

// Uniform draws from the symmetric range [-r, r).
func Uniform(r float64) InitFn {
	return func(rnd *rand.Rand, fanIn, fanOut int, into []float32) {
		for i := range into {
			into[i] = float32(rnd.Float64()*2*r - r)
		}
	}
}

// He draws from a Gaussian scaled by sqrt(2/(fanIn+fanOut)).
func He() InitFn {
	return func(rnd *rand.Rand, fanIn, fanOut int, into []float32) {
		std := math.Sqrt(2 / float64(fanIn+fanOut))
		for i := range into {
			into[i] = float32(rnd.NormFloat64() * std)
		}
	}
}

// Zeroes fills with 0.
func Zeroes() InitFn { return Constant(0) }

// Constant fills with v.
func Constant(v float32) InitFn {
	return func(_ *rand.Rand, _, _ int, into []float32) {
		for i := range into {
			into[i] = v
		}
	}
}
