package digitnet

import (
	"fmt"
	"io"
	"log"
	"math/rand"

	mlp "github.com/gorgonia/digitnet/mlpnet"
)

type Config struct {
	NNConf mlp.Config

	Cycles   int  // passes over the training set when Train is called with cycles <= 0
	LogEvery int  // log the running loss every LogEvery samples. 0 never logs progress
	Shuffle  bool // visit the training samples in a new random order every cycle
	Rand     *rand.Rand

	// evaluation
	Workers        int  // concurrent inferers. 0 means one per CPU
	GraphInference bool // evaluate with compiled expression graphs instead of native replicas

	// extensions
	Augmenter Augmenter
	Encoder   OutputEncoder
	Reporter  Reporter
	Logger    *log.Logger
}

// Dataset is an ordered collection of labeled samples.
type Dataset interface {
	Count() int
	Sample(i int) (pixels []float32, label int)
}

// Imager is implemented by datasets that know the width and height of their samples.
type Imager interface {
	Dims() (width, height int)
}

// OutputEncoder encodes misclassified samples as whatever.
//
// An example OutputEncoder is the GifEncoder. Another example would be a live MJPEG stream.
// Encoding failures are logged and never stop an evaluation.
type OutputEncoder interface {
	Encode(m Misclassified) error
	Flush() error
}

// Misclassified is an evaluation sample whose predicted class was wrong.
type Misclassified struct {
	Index         int
	Pixels        []float32
	Width, Height int
	Want, Got     int
	Output        []float32
}

func (m Misclassified) Caption() string {
	return fmt.Sprintf("#%d want %d got %d", m.Index, m.Want, m.Got)
}

// Augmenter takes an example, and creates more examples from it.
type Augmenter func(a Example, width, height int) []Example

// Example is a single training example.
type Example struct {
	Pixels []float32
	Label  int
}

// Inferer is anything that can infer given an input.
type Inferer interface {
	Infer(a []float32) (output []float32, err error)
	io.Closer
}

// Progress is a snapshot of a running training or evaluation.
type Progress struct {
	Phase    string  `json:"phase"` // "train" or "test"
	Cycle    int     `json:"cycle"`
	Done     int     `json:"done"`
	Total    int     `json:"total"`
	Loss     float32 `json:"loss"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Reporter receives progress snapshots. Report is called from the goroutine running
// Train or Evaluate.
type Reporter interface {
	Report(p Progress)
}

// Result is the outcome of an evaluation.
type Result struct {
	Total   int
	Correct int
	Loss    float32 // mean loss per sample
}

// Accuracy is the fraction of samples that were classified correctly.
func (r Result) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

func (r Result) String() string {
	return fmt.Sprintf("%d/%d correct (%.2f%%), mean loss %.4f", r.Correct, r.Total, 100*r.Accuracy(), r.Loss)
}
