package digitnet

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
	mlp "github.com/gorgonia/digitnet/mlpnet"
	"github.com/pkg/errors"
)

type verdict struct {
	index  int
	label  int
	class  int
	loss   float32
	output []float32
	err    error
}

// Evaluate runs every sample of data through a snapshot of the network without
// updating it, and reports how many were classified correctly. Samples are spread
// over Config.Workers inferers. Misclassified samples are handed to the
// OutputEncoder. An encoder failure is logged and never fails the evaluation.
func (t *Trainer) Evaluate(data Dataset) (Result, error) {
	total := data.Count()
	if total == 0 {
		return Result{}, errors.New("Cannot evaluate an empty dataset")
	}
	classes := t.nn.OutputSize()
	width, height := dims(data, t.nn.InputSize())

	a, err := newAgent(t.nn, t.conf.Workers, t.conf.GraphInference)
	if err != nil {
		return Result{}, errors.WithMessage(err, "Unable to snapshot the network")
	}
	defer a.Close()
	t.logger.Printf("Evaluating %d samples with %d inferers", total, a.Len())

	start := time.Now()
	jobs := make(chan int)
	verdicts := make(chan verdict, a.Len())
	var stop int32

	go func() {
		defer close(jobs)
		for i := 0; i < total && atomic.LoadInt32(&stop) == 0; i++ {
			jobs <- i
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < a.Len(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := make([]float32, classes)
			for i := range jobs {
				verdicts <- judge(a, data, i, target)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(verdicts)
	}()

	var res Result
	var sum float64
	var firstErr error
	for v := range verdicts {
		if firstErr != nil {
			continue // drain
		}
		if v.err != nil {
			firstErr = errors.WithMessagef(v.err, "sample %d", v.index)
			atomic.StoreInt32(&stop, 1)
			continue
		}
		if !validLoss(v.loss) {
			firstErr = errors.Wrapf(mlp.ErrDiverged, "sample %d", v.index)
			atomic.StoreInt32(&stop, 1)
			continue
		}

		res.Total++
		sum += float64(v.loss)
		if v.class == v.label {
			res.Correct++
		} else {
			t.encode(data, v, width, height)
		}

		if every := t.conf.LogEvery; every > 0 && res.Total%every == 0 {
			res.Loss = float32(sum / float64(res.Total))
			t.logger.Printf("Evaluated %d/%d. Last: expected %d, got %d. Accuracy so far %.4f", res.Total, total, v.label, v.class, res.Accuracy())
			t.report(Progress{Phase: "test", Done: res.Total, Total: total, Loss: res.Loss, Accuracy: res.Accuracy()})
		}
	}
	if firstErr != nil {
		return Result{}, firstErr
	}

	res.Loss = float32(sum / float64(res.Total))
	t.update(Record{
		Phase:    "test",
		Samples:  res.Total,
		Loss:     res.Loss,
		Accuracy: res.Accuracy(),
		Duration: time.Since(start),
	})
	t.logger.Printf("Evaluation done in %v: %v", time.Since(start), res)
	t.report(Progress{Phase: "test", Done: res.Total, Total: total, Loss: res.Loss, Accuracy: res.Accuracy()})
	return res, nil
}

// judge classifies sample i. target is scratch space owned by the calling worker.
func judge(inf Inferer, data Dataset, i int, target []float32) verdict {
	pixels, label := data.Sample(i)
	v := verdict{index: i, label: label, class: -1}
	if label < 0 || label >= len(target) {
		v.err = errors.Errorf("label %d out of range [0, %d)", label, len(target))
		return v
	}
	if v.output, v.err = inf.Infer(pixels); v.err != nil {
		return v
	}
	if v.class, v.err = mlp.Argmax(v.output); v.err != nil {
		return v
	}
	target = OneHot(label, len(target), target)
	v.loss, v.err = mlp.MeanCrossEntropy(v.output, target)
	return v
}

func (t *Trainer) encode(data Dataset, v verdict, width, height int) {
	if t.outEnc == nil {
		return
	}
	pixels, _ := data.Sample(v.index)
	m := Misclassified{
		Index:  v.index,
		Pixels: pixels,
		Width:  width,
		Height: height,
		Want:   v.label,
		Got:    v.class,
		Output: v.output,
	}
	if err := t.outEnc.Encode(m); err != nil {
		t.logger.Printf("Unable to render misclassified sample %d: %v", v.index, err)
	}
}

func validLoss(loss float32) bool {
	return !math32.IsInf(loss, 0) && !math32.IsNaN(loss)
}
