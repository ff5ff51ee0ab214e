package digitnet

import (
	"bytes"
	"fmt"
	"runtime"

	mlp "github.com/gorgonia/digitnet/mlpnet"
)

var numCPU = runtime.NumCPU()

// An agent hands out inference-only copies of a network to concurrent callers.
// The network itself is never shared: every inferer owns its own parameters and
// activation buffers.
type agent struct {
	inferer  chan Inferer
	inferers []Inferer
}

// newAgent snapshots nn into n inferers. With graph set the inferers are compiled
// expression graphs; otherwise they are native replicas.
func newAgent(nn *mlp.Network, n int, graph bool) (*agent, error) {
	if n <= 0 {
		n = numCPU
	}
	retVal := &agent{
		inferer:  make(chan Inferer, n),
		inferers: make([]Inferer, 0, n),
	}
	for i := 0; i < n; i++ {
		var inf Inferer
		var err error
		if graph {
			inf, err = mlp.Infer(nn)
		} else {
			inf, err = nn.Replica()
		}
		if err != nil {
			retVal.Close()
			return nil, err
		}
		retVal.inferers = append(retVal.inferers, inf)
		retVal.inferer <- inf
	}
	return retVal, nil
}

// Len is the number of inferers.
func (a *agent) Len() int { return len(a.inferers) }

// Infer borrows an inferer, blocking until one is free.
func (a *agent) Infer(input []float32) (output []float32, err error) {
	inf := <-a.inferer
	output, err = inf.Infer(input)
	a.inferer <- inf
	return
}

func (a *agent) Close() error {
	var allErrs manyErr
	for _, inferer := range a.inferers {
		if err := inferer.Close(); err != nil {
			allErrs = append(allErrs, err)
		}
	}
	a.inferers = nil
	if len(allErrs) > 0 {
		return allErrs
	}
	return nil
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}
