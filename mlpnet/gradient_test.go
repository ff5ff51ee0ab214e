package mlp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func categoricalLoss(output, target []float32) float64 {
	var retVal float64
	for i := range output {
		if target[i] != 0 {
			retVal -= float64(target[i]) * math.Log(float64(output[i]))
		}
	}
	return retVal
}

// Central differences over the whole parameter vector against Gradients.
func TestGradientsFiniteDifference(t *testing.T) {
	conf := seeded(DefaultConf(3, 4, 3), 7)
	conf.WeightInit = He()
	n, err := New(conf)
	require.NoError(t, err)

	x := []float32{0.7, -0.2, 0.4}
	target := oneHot(0, 3)
	grads, err := n.Gradients(x, target)
	require.NoError(t, err)

	origin := n.Save()
	p0 := make([]float64, len(origin))
	for i, v := range origin {
		p0[i] = float64(v)
	}
	params := make([]float32, len(origin))
	loss := func(p []float64) float64 {
		for i, v := range p {
			params[i] = float32(v)
		}
		if err := n.Restore(params); err != nil {
			t.Fatal(err)
		}
		out, err := n.Forward(x)
		if err != nil {
			t.Fatal(err)
		}
		return categoricalLoss(out, target)
	}
	numeric := fd.Gradient(nil, loss, p0, &fd.Settings{Formula: fd.Central, Step: 1e-2})

	for i := range grads {
		assert.InDelta(t, numeric[i], float64(grads[i]), 2e-3, "param %d", i)
	}
}

// symbolic builds the loss the native network differentiates: categorical cross entropy
// behind a softmax output, half the squared error otherwise.
func symbolic(gr *graph, act Activation, target []float32) (*G.Node, error) {
	tgt := G.NewVector(gr.g, Float, G.WithShape(len(target)), G.WithName("target"),
		G.WithValue(tensor.New(tensor.WithShape(len(target)), tensor.WithBacking(target))))

	var m maebe
	var cost *G.Node
	if act == Softmax {
		logprob := m.do(func() (*G.Node, error) { return G.Log(gr.output) })
		cost = m.do(func() (*G.Node, error) { return G.HadamardProd(tgt, logprob) })
		cost = m.do(func() (*G.Node, error) { return G.Sum(cost) })
		cost = m.do(func() (*G.Node, error) { return G.Neg(cost) })
	} else {
		half := G.NewConstant(float32(0.5))
		cost = m.do(func() (*G.Node, error) { return G.Sub(gr.output, tgt) })
		cost = m.do(func() (*G.Node, error) { return G.Square(cost) })
		cost = m.do(func() (*G.Node, error) { return G.Sum(cost) })
		cost = m.do(func() (*G.Node, error) { return G.Mul(half, cost) })
	}
	return cost, m.err
}

func TestGradientsAgainstSymbolic(t *testing.T) {
	confs := []Config{
		DefaultConf(5, 4, 3),
		{Sizes: []int{5, 4, 4, 3}, Hidden: Rectifier, Output: Softmax, LearnRate: 0.1},
		{Sizes: []int{5, 4, 3}, Hidden: Sigmoid, Output: Sigmoid, LearnRate: 0.1},
	}
	for i, conf := range confs {
		conf = seeded(conf, int64(i+20))
		conf.WeightInit = He()
		n, err := New(conf)
		require.NoError(t, err)

		rnd := rand.New(rand.NewSource(int64(i)))
		x := randVec(rnd, 5)
		target := oneHot(2, 3)

		gr, err := buildGraph(n)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		cost, err := symbolic(gr, n.Layer(n.Len()-1).Activation(), target)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		model := append(G.Nodes{}, gr.ws...)
		model = append(model, gr.bs...)
		if _, err = G.Grad(cost, model...); err != nil {
			t.Fatalf("%+v", err)
		}
		m := G.NewTapeMachine(gr.g, G.BindDualValues(model...))
		require.NoError(t, G.Let(gr.input, tensor.New(tensor.WithShape(5), tensor.WithBacking(x))))
		if err = m.RunAll(); err != nil {
			t.Fatalf("%+v", err)
		}

		grads, err := n.Gradients(x, target)
		require.NoError(t, err)
		for j := range gr.ws {
			l := n.Layer(j + 1)
			block := grads[l.Offset() : l.Offset()+l.ParamCount()]

			wg, err := gr.ws[j].Grad()
			require.NoError(t, err)
			assert.InDeltaSlice(t, wg.Data().([]float32), block[l.Size():], 1e-5, "conf %d weights of layer %d", i, l.Index())

			bg, err := gr.bs[j].Grad()
			require.NoError(t, err)
			assert.InDeltaSlice(t, bg.Data().([]float32), block[:l.Size()], 1e-5, "conf %d biases of layer %d", i, l.Index())
		}
		m.Close()
	}
}
