package mlp

import (
	"log"
	"math/rand"

	"github.com/pkg/errors"
)

const (
	defaultLearnRate = 0.001
	defaultMomentum  = 0.5
	defaultRadius    = 0.25
)

// Store persists the flat parameter vector.
type Store interface {
	Load() ([]float32, error)
	Save(params []float32) error
}

// Config configures the neural network
type Config struct {
	Sizes []int // neuron count per layer, input first

	Hidden      Activation   // activation of every hidden layer
	Output      Activation   // activation of the output layer
	Activations []Activation // optional, one per non-input layer. Overrides Hidden and Output

	LearnRate float32
	Momentum  float32

	BiasInit   InitFn // defaults to Uniform(0.25)
	WeightInit InitFn // defaults to Uniform(0.25)

	Rand   *rand.Rand  // nil uses a time seeded source
	Logger *log.Logger // nil discards
	Store  Store       // optional. If set, New loads from it and Persist saves to it
}

// DefaultConf is a sigmoid network with a softmax output, trained with the
// learning rate and momentum the digit recognizer has always used.
func DefaultConf(sizes ...int) Config {
	return Config{
		Sizes:      sizes,
		Hidden:     Sigmoid,
		Output:     Softmax,
		LearnRate:  defaultLearnRate,
		Momentum:   defaultMomentum,
		BiasInit:   Uniform(defaultRadius),
		WeightInit: Uniform(defaultRadius),
	}
}

// IsValid reports whether New would accept the config.
func (conf Config) IsValid() bool { return conf.validate() == nil }

func (conf Config) validate() error {
	if len(conf.Sizes) < 2 {
		return InvalidTopology{Sizes: conf.Sizes, Reason: "a network needs at least 2 layers"}
	}
	for _, s := range conf.Sizes {
		if s <= 0 {
			return InvalidTopology{Sizes: conf.Sizes, Reason: "layer sizes must be positive"}
		}
	}
	if conf.Activations != nil && len(conf.Activations) != len(conf.Sizes)-1 {
		return InvalidTopology{Sizes: conf.Sizes, Reason: "need one activation per non-input layer"}
	}
	last := len(conf.Sizes) - 1
	for i := 1; i <= last; i++ {
		act := conf.activation(i)
		if !act.IsValid() {
			return InvalidTopology{Sizes: conf.Sizes, Reason: "unknown activation " + act.String()}
		}
		if act == Softmax && i != last {
			return InvalidTopology{Sizes: conf.Sizes, Reason: "softmax is only allowed on the output layer"}
		}
	}
	if conf.LearnRate <= 0 {
		return errors.Errorf("learn rate must be positive, got %v", conf.LearnRate)
	}
	if conf.Momentum < 0 || conf.Momentum >= 1 {
		return errors.Errorf("momentum must be in [0, 1), got %v", conf.Momentum)
	}
	return nil
}

// activation returns the activation of layer i (i >= 1).
func (conf Config) activation(i int) Activation {
	if conf.Activations != nil {
		return conf.Activations[i-1]
	}
	if i == len(conf.Sizes)-1 {
		return conf.Output
	}
	return conf.Hidden
}

// ParamCount is the length of the flat parameter vector of a network with the given sizes.
func ParamCount(sizes []int) int {
	var n int
	for i := 1; i < len(sizes); i++ {
		n += sizes[i] + sizes[i]*sizes[i-1]
	}
	return n
}
