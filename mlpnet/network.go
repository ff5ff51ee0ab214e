package mlp

import (
	"io/ioutil"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Network is a fixed stack of layers: the input layer first, the output layer last.
// It is not safe for concurrent use. Use Clone or Infer to get independent copies for inference.
type Network struct {
	conf   Config
	layers []*Layer

	paramCount int
	rnd        *rand.Rand
	logger     *log.Logger
}

// New builds the layer stack described by conf, randomizes the parameters and,
// if conf.Store is set, overrides them with the persisted parameter vector.
// A missing persisted vector is a cold start and is not an error.
func New(conf Config) (*Network, error) {
	if err := conf.validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	if conf.BiasInit == nil {
		conf.BiasInit = Uniform(defaultRadius)
	}
	if conf.WeightInit == nil {
		conf.WeightInit = Uniform(defaultRadius)
	}
	if conf.Rand == nil {
		conf.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if conf.Logger == nil {
		conf.Logger = log.New(ioutil.Discard, "", 0)
	}
	conf.Sizes = append([]int(nil), conf.Sizes...)

	retVal := &Network{
		conf:   conf,
		layers: make([]*Layer, len(conf.Sizes)),
		rnd:    conf.Rand,
		logger: conf.Logger,
	}

	var offset int
	for i, size := range conf.Sizes {
		fanIn, act := 0, Identity
		if i > 0 {
			fanIn, act = conf.Sizes[i-1], conf.activation(i)
		}
		l, err := newLayer(i, size, fanIn, act, offset)
		if err != nil {
			return nil, err
		}
		l.initialize(retVal.rnd, conf.BiasInit, conf.WeightInit)
		offset += l.ParamCount()
		retVal.layers[i] = l
	}
	retVal.paramCount = offset

	if conf.Store != nil {
		if err := retVal.loadStore(); err != nil {
			return nil, err
		}
	}
	return retVal, nil
}

func (n *Network) loadStore() error {
	params, err := n.conf.Store.Load()
	switch {
	case err != nil && os.IsNotExist(errors.Cause(err)):
		n.logger.Printf("No persisted parameters found, starting from random initialization: %v", err)
		return nil
	case err != nil:
		return errors.WithMessage(err, "unable to load persisted parameters")
	case len(params) == 0:
		n.logger.Printf("Persisted parameter vector is empty, starting from random initialization")
		return nil
	}
	if err = n.Restore(params); err != nil {
		return err
	}
	n.logger.Printf("Loaded %d persisted parameters", len(params))
	return nil
}

// Config returns the configuration the network was built with.
func (n *Network) Config() Config { return n.conf }

// Sizes returns the neuron count of every layer.
func (n *Network) Sizes() []int { return append([]int(nil), n.conf.Sizes...) }

// Len is the number of layers, including the input layer.
func (n *Network) Len() int { return len(n.layers) }

// Layer returns the layer at index i.
func (n *Network) Layer(i int) *Layer { return n.layers[i] }

// InputSize is the neuron count of the input layer.
func (n *Network) InputSize() int { return n.layers[0].size }

// OutputSize is the neuron count of the output layer.
func (n *Network) OutputSize() int { return n.output().size }

// ParamCount is the length of the parameter vector.
func (n *Network) ParamCount() int { return n.paramCount }

func (n *Network) output() *Layer { return n.layers[len(n.layers)-1] }

func (n *Network) forward(input []float32) ([]float32, error) {
	out := input
	var err error
	for _, l := range n.layers {
		if out, err = l.feedForward(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Forward runs the input through the network and returns the output layer's activations.
func (n *Network) Forward(input []float32) ([]float32, error) {
	out, err := n.forward(input)
	if err != nil {
		return nil, err
	}
	return cloneF32(out), nil
}

func (n *Network) checkTarget(target []float32) error {
	if len(target) != n.OutputSize() {
		return ShapeMismatch{Layer: len(n.layers) - 1, What: "target", Want: n.OutputSize(), Got: len(target)}
	}
	return nil
}

// outputSignal is the gradient handed to the output layer. With a softmax output it is the
// combined softmax and cross entropy gradient. Otherwise it is the derivative of the
// squared error and the output layer applies its own activation derivative.
func outputSignal(output, target []float32) []float32 {
	retVal := cloneF32(output)
	for i := range retVal {
		retVal[i] -= target[i]
	}
	return retVal
}

// Train runs one online update: a forward pass, then back propagation from the output layer
// down to the first hidden layer. It returns the loss of the forward pass, measured before the
// parameters were updated. Shape errors are reported before any parameter is touched.
func (n *Network) Train(input, target []float32) (loss float32, err error) {
	if err = n.checkTarget(target); err != nil {
		return 0, err
	}
	var output []float32
	if output, err = n.forward(input); err != nil {
		return 0, err
	}
	if loss, err = MeanCrossEntropy(output, target); err != nil {
		return 0, err
	}

	signal := outputSignal(output, target)
	lr, mom := n.conf.LearnRate, n.conf.Momentum
	for i := len(n.layers) - 1; i > 0; i-- {
		if signal, err = n.layers[i].backPropagate(signal, n.layers[i-1].activations, lr, mom, i > 1); err != nil {
			return loss, err
		}
	}
	return loss, nil
}

// Evaluate runs the input forwards without updating anything. The predicted class is the
// index of the largest output.
func (n *Network) Evaluate(input, target []float32) (class int, loss float32, err error) {
	if err = n.checkTarget(target); err != nil {
		return -1, 0, err
	}
	var output []float32
	if output, err = n.forward(input); err != nil {
		return -1, 0, err
	}
	if class, err = Argmax(output); err != nil {
		return -1, 0, err
	}
	if loss, err = MeanCrossEntropy(output, target); err != nil {
		return -1, 0, err
	}
	return class, loss, nil
}

// Gradients returns the gradient of the loss for one sample, laid out like the parameter
// vector. The parameters are not updated.
func (n *Network) Gradients(input, target []float32) ([]float32, error) {
	if err := n.checkTarget(target); err != nil {
		return nil, err
	}
	output, err := n.forward(input)
	if err != nil {
		return nil, err
	}
	grads := make([]float32, n.paramCount)
	signal := outputSignal(output, target)
	for i := len(n.layers) - 1; i > 0; i-- {
		if signal, err = n.layers[i].accumulate(signal, n.layers[i-1].activations, grads, i > 1); err != nil {
			return nil, err
		}
	}
	return grads, nil
}

// Clone returns a network with the same topology and parameters. The clone has no store and
// fresh momentum, and does not draw from the original's random source.
func (n *Network) Clone() (*Network, error) {
	conf := n.conf
	conf.Store = nil
	conf.BiasInit = Zeroes()
	conf.WeightInit = Zeroes()
	conf.Rand = rand.New(rand.NewSource(0))
	retVal, err := New(conf)
	if err != nil {
		return nil, err
	}
	if err = retVal.Restore(n.Save()); err != nil {
		return nil, err
	}
	return retVal, nil
}
