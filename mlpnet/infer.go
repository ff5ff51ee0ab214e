package mlp

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var Float = G.Float32

type maebe struct {
	err error
}

// generic monad... may be useful
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) activate(z *G.Node, act Activation) *G.Node {
	switch act {
	case Sigmoid:
		return m.do(func() (*G.Node, error) { return G.Sigmoid(z) })
	case Rectifier:
		return m.do(func() (*G.Node, error) { return G.Rectify(z) })
	case Softmax:
		return m.do(func() (*G.Node, error) { return G.SoftMax(z) })
	}
	return z
}

// graph is a network expressed as a gorgonia expression graph.
type graph struct {
	g      *G.ExprGraph
	input  *G.Node
	ws, bs G.Nodes
	logits *G.Node // pre activation of the output layer
	output *G.Node
}

// buildGraph copies the parameters of n into a fresh expression graph.
func buildGraph(n *Network) (*graph, error) {
	retVal := &graph{g: G.NewGraph()}
	retVal.input = G.NewVector(retVal.g, Float, G.WithShape(n.InputSize()), G.WithName("input"))

	var m maebe
	x := retVal.input
	for _, l := range n.layers[1:] {
		name := fmt.Sprintf("layer%d", l.index)
		w := G.NewMatrix(retVal.g, Float, G.WithShape(l.size, l.fanIn), G.WithName(name+"_w"), G.WithValue(l.Weights()))
		b := G.NewVector(retVal.g, Float, G.WithShape(l.size), G.WithName(name+"_b"),
			G.WithValue(tensor.New(tensor.WithShape(l.size), tensor.WithBacking(l.Biases()))))
		retVal.ws = append(retVal.ws, w)
		retVal.bs = append(retVal.bs, b)

		wx := m.do(func() (*G.Node, error) { return G.Mul(w, x) })
		z := m.do(func() (*G.Node, error) { return G.Add(wx, b) })
		retVal.logits = z
		x = m.activate(z, l.act)
	}
	if m.err != nil {
		return nil, m.err
	}
	retVal.output = x
	return retVal, nil
}

// Inferencer holds a compiled copy of a network and a VM. By using an Inferencer, there is no
// need to share the network's cached activations between goroutines. Parameters are copied when
// the Inferencer is created; later training of the source network is not reflected.
type Inferencer struct {
	gr    *graph
	m     G.VM
	input *tensor.Dense
	out   G.Value
}

// Infer compiles n into an Inferencer.
func Infer(n *Network) (*Inferencer, error) {
	gr, err := buildGraph(n)
	if err != nil {
		return nil, err
	}
	retVal := &Inferencer{
		gr:    gr,
		input: tensor.New(tensor.WithShape(n.InputSize()), tensor.Of(Float)),
	}
	G.Read(gr.output, &retVal.out)
	retVal.m = G.NewTapeMachine(gr.g)
	return retVal, nil
}

// Infer runs x through the compiled graph and returns the output layer's activations.
func (m *Inferencer) Infer(x []float32) ([]float32, error) {
	data := m.input.Data().([]float32)
	if len(x) != len(data) {
		return nil, ShapeMismatch{Layer: 0, What: "input", Want: len(data), Got: len(x)}
	}
	copy(data, x)

	m.m.Reset()
	if err := G.Let(m.gr.input, m.input); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := m.m.RunAll(); err != nil {
		return nil, errors.WithStack(err)
	}
	return cloneF32(m.out.Data().([]float32)), nil
}

// Close implements a closer, because well, a gorgonia VM is a resource.
func (m *Inferencer) Close() error { return m.m.Close() }

// Replica is a native inference-only copy of a network.
type Replica struct {
	n *Network
}

// Replica clones the network into an independent inferer.
func (n *Network) Replica() (*Replica, error) {
	c, err := n.Clone()
	if err != nil {
		return nil, err
	}
	return &Replica{n: c}, nil
}

func (r *Replica) Infer(x []float32) ([]float32, error) { return r.n.Forward(x) }

func (r *Replica) Close() error { return nil }
