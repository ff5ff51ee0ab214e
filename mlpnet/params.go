package mlp

import "github.com/pkg/errors"

// Save assembles the flat parameter vector: every non-input layer's biases followed by its
// row-major weights, layer by layer.
func (n *Network) Save() []float32 {
	retVal := make([]float32, n.paramCount)
	for _, l := range n.layers {
		l.store(retVal)
	}
	return retVal
}

// Restore loads a flat parameter vector produced by Save on a network of the same topology.
// Momentum is reset.
func (n *Network) Restore(params []float32) error {
	if len(params) != n.paramCount {
		return ShapeMismatch{Layer: -1, What: "parameter vector", Want: n.paramCount, Got: len(params)}
	}
	for _, l := range n.layers {
		l.load(params)
	}
	return nil
}

// Persist saves the parameter vector to the configured store. The vector is fully assembled
// before the store sees it.
func (n *Network) Persist() error {
	if n.conf.Store == nil {
		return errors.New("no parameter store configured")
	}
	params := n.Save()
	if err := n.conf.Store.Save(params); err != nil {
		return errors.WithMessage(err, "unable to persist parameters")
	}
	n.logger.Printf("Persisted %d parameters", len(params))
	return nil
}

// load reads this layer's block out of the parameter vector. Momentum is reset
// since it belongs to the parameters it was accumulated on.
func (l *Layer) load(params []float32) {
	if l.IsInput() {
		return
	}
	block := params[l.offset : l.offset+l.ParamCount()]
	copy(l.biases, block[:l.size])
	copy(l.w, block[l.size:])
	l.resetMomentum()
}

// store writes this layer's biases then its row-major weights into the parameter vector.
func (l *Layer) store(params []float32) {
	if l.IsInput() {
		return
	}
	block := params[l.offset : l.offset+l.ParamCount()]
	copy(block, l.biases)
	copy(block[l.size:], l.w)
}

func cloneF32(a []float32) []float32 {
	if a == nil {
		return nil
	}
	retVal := make([]float32, len(a))
	copy(retVal, a)
	return retVal
}
