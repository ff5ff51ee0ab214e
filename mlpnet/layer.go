package mlp

import (
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
	"gorgonia.org/vecf32"
)

// Layer is one slice of the network's neurons.
//
// A layer never points at its neighbours. The network passes the previous
// layer's activations in, so previous and next are i-1 and i+1 in the stack.
// The input layer (index 0) owns no parameters and forwards its input unchanged.
type Layer struct {
	index  int
	size   int
	fanIn  int // size of the previous layer. 0 for the input layer
	act    Activation
	offset int // start of this layer's block in the parameter vector

	biases  []float32
	weights *tensor.Dense // size × fanIn. Entry (i, j) connects previous neuron j to neuron i
	w       []float32     // backing of weights
	rows    [][]float32   // row views into w

	biasMomentum   []float32
	weightMomentum []float32

	activations []float32 // output of the last forward pass
}

func newLayer(index, size, fanIn int, act Activation, offset int) (*Layer, error) {
	l := &Layer{
		index:  index,
		size:   size,
		fanIn:  fanIn,
		act:    act,
		offset: offset,
	}
	if l.IsInput() {
		return l, nil
	}

	l.biases = make([]float32, size)
	l.w = make([]float32, size*fanIn)
	l.weights = tensor.New(tensor.WithShape(size, fanIn), tensor.WithBacking(l.w))

	var err error
	if l.rows, err = native.MatrixF32(l.weights); err != nil {
		return nil, errors.Wrapf(err, "unable to view weights of layer %d", index)
	}
	l.biasMomentum = make([]float32, size)
	l.weightMomentum = make([]float32, size*fanIn)
	return l, nil
}

func (l *Layer) Index() int             { return l.index }
func (l *Layer) Size() int              { return l.size }
func (l *Layer) FanIn() int             { return l.fanIn }
func (l *Layer) Activation() Activation { return l.act }
func (l *Layer) Offset() int            { return l.offset }
func (l *Layer) IsInput() bool          { return l.index == 0 }

// ParamCount is the number of values this layer owns in the parameter vector.
func (l *Layer) ParamCount() int {
	if l.IsInput() {
		return 0
	}
	return l.size + l.size*l.fanIn
}

// Biases returns a copy of the bias vector. It is nil for the input layer.
func (l *Layer) Biases() []float32 { return cloneF32(l.biases) }

// Weights returns a copy of the weight matrix. It is nil for the input layer.
func (l *Layer) Weights() *tensor.Dense {
	if l.IsInput() {
		return nil
	}
	return l.weights.Clone().(*tensor.Dense)
}

// Activations returns a copy of the output of the last forward pass.
func (l *Layer) Activations() []float32 { return cloneF32(l.activations) }

func (l *Layer) initialize(rnd *rand.Rand, biasInit, weightInit InitFn) {
	if l.IsInput() {
		return
	}
	biasInit(rnd, l.fanIn, l.size, l.biases)
	weightInit(rnd, l.fanIn, l.size, l.w)
	l.resetMomentum()
}

func (l *Layer) resetMomentum() {
	for i := range l.biasMomentum {
		l.biasMomentum[i] = 0
	}
	for i := range l.weightMomentum {
		l.weightMomentum[i] = 0
	}
}

// feedForward computes this layer's activations from the previous layer's
// activations (or the raw input, for the input layer) and caches them.
func (l *Layer) feedForward(input []float32) ([]float32, error) {
	if l.IsInput() {
		if len(input) != l.size {
			return nil, ShapeMismatch{Layer: l.index, What: "input", Want: l.size, Got: len(input)}
		}
		l.activations = append(l.activations[:0], input...)
		return l.activations, nil
	}
	if len(input) != l.fanIn {
		return nil, ShapeMismatch{Layer: l.index, What: "previous activations", Want: l.fanIn, Got: len(input)}
	}

	x := tensor.New(tensor.WithShape(l.fanIn), tensor.WithBacking(input))
	z, err := l.weights.MatVecMul(x)
	if err != nil {
		return nil, errors.Wrapf(err, "forward pass of layer %d", l.index)
	}
	out := z.Data().([]float32)
	vecf32.Add(out, l.biases)
	l.act.Activate(out)
	l.activations = out
	return out, nil
}

// localGradient multiplies the incoming error signal by the activation's
// derivative at the cached output. A non differentiable activation (softmax)
// receives a signal that already is the combined loss and activation gradient.
func (l *Layer) localGradient(signal []float32) []float32 {
	local := cloneF32(signal)
	if !l.act.Differentiable() {
		return local
	}
	for i, y := range l.activations {
		local[i] *= l.act.Derivative(y)
	}
	return local
}

// backSignal is local · W, the error signal for the previous layer.
func (l *Layer) backSignal(local []float32) []float32 {
	retVal := make([]float32, l.fanIn)
	for i, row := range l.rows {
		g := local[i]
		if g == 0 {
			continue
		}
		for j, w := range row {
			retVal[j] += g * w
		}
	}
	return retVal
}

// weightGradient is the outer product of the local gradient and the previous activations.
func (l *Layer) weightGradient(local, prev []float32) ([]float32, error) {
	a := tensor.New(tensor.WithShape(len(local)), tensor.WithBacking(local))
	b := tensor.New(tensor.WithShape(len(prev)), tensor.WithBacking(prev))
	outer, err := a.Outer(b)
	if err != nil {
		return nil, errors.Wrapf(err, "weight gradient of layer %d", l.index)
	}
	return outer.Data().([]float32), nil
}

// backPropagate applies one momentum update to this layer's parameters and
// returns the error signal for the previous layer, computed against the
// weights as they were before the update. prev holds the previous layer's
// cached activations. The returned signal is nil when propagate is false.
func (l *Layer) backPropagate(signal, prev []float32, learnRate, momentum float32, propagate bool) ([]float32, error) {
	if l.IsInput() {
		return nil, nil
	}
	if len(signal) != l.size {
		return nil, ShapeMismatch{Layer: l.index, What: "error signal", Want: l.size, Got: len(signal)}
	}
	local := l.localGradient(signal)
	var retVal []float32
	if propagate {
		retVal = l.backSignal(local)
	}
	wgrad, err := l.weightGradient(local, prev)
	if err != nil {
		return nil, err
	}

	// nothing below can fail, so the layer is never left half updated
	vecf32.Scale(local, learnRate)
	vecf32.Scale(l.biasMomentum, momentum)
	vecf32.Add(l.biasMomentum, local)
	vecf32.Sub(l.biases, l.biasMomentum)

	vecf32.Scale(wgrad, learnRate)
	vecf32.Scale(l.weightMomentum, momentum)
	vecf32.Add(l.weightMomentum, wgrad)
	vecf32.Sub(l.w, l.weightMomentum)
	return retVal, nil
}

// accumulate writes the raw gradient of this layer into its block of grads
// without touching the parameters, and returns the previous layer's error signal.
func (l *Layer) accumulate(signal, prev, grads []float32, propagate bool) ([]float32, error) {
	if l.IsInput() {
		return nil, nil
	}
	local := l.localGradient(signal)
	wgrad, err := l.weightGradient(local, prev)
	if err != nil {
		return nil, err
	}
	block := grads[l.offset : l.offset+l.ParamCount()]
	copy(block, local)
	copy(block[l.size:], wgrad)
	if !propagate {
		return nil, nil
	}
	return l.backSignal(local), nil
}
