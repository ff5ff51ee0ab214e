package digitnet

import (
	"io/ioutil"
	"log"
	"math/rand"
	"time"

	mlp "github.com/gorgonia/digitnet/mlpnet"
	"github.com/pkg/errors"
)

// Trainer is the top level structure and the entry point of the API.
// It drives a network through training cycles over a dataset, persists the result,
// and evaluates it against held out data.
type Trainer struct {
	// state
	Statistics
	nn *mlp.Network

	// config
	conf   Config
	rnd    *rand.Rand
	logger *log.Logger

	// io
	outEnc   OutputEncoder
	reporter Reporter
}

// New builds the network described by conf.NNConf. If the network config has a
// Store, previously persisted parameters are loaded from it.
func New(conf Config) (*Trainer, error) {
	if conf.Logger == nil {
		conf.Logger = log.New(ioutil.Discard, "", 0)
	}
	if conf.NNConf.Logger == nil {
		conf.NNConf.Logger = conf.Logger
	}
	if conf.Rand == nil {
		conf.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	nn, err := mlp.New(conf.NNConf)
	if err != nil {
		return nil, errors.WithMessage(err, "Unable to build the network")
	}
	return &Trainer{
		Statistics: makeStatistics(),
		nn:         nn,
		conf:       conf,
		rnd:        conf.Rand,
		logger:     conf.Logger,
		outEnc:     conf.Encoder,
		reporter:   conf.Reporter,
	}, nil
}

// Network returns the network being trained.
func (t *Trainer) Network() *mlp.Network { return t.nn }

func (t *Trainer) report(p Progress) {
	if t.reporter != nil {
		t.reporter.Report(p)
	}
}

// Train runs cycles passes over data, one online update per sample, then persists the
// parameters if the network has a Store. A cycles value <= 0 uses Config.Cycles.
//
// Training stops at the first sample that fails, with an error naming the cycle and
// sample. If only the final save fails, the trained parameters are still in memory
// and the returned error says so.
func (t *Trainer) Train(data Dataset, cycles int) error {
	if cycles <= 0 {
		cycles = t.conf.Cycles
	}
	if cycles <= 0 {
		cycles = 1
	}
	total := data.Count()
	if total == 0 {
		return errors.New("Cannot train on an empty dataset")
	}
	classes := t.nn.OutputSize()
	width, height := dims(data, t.nn.InputSize())

	order := make([]int, total)
	for i := range order {
		order[i] = i
	}
	target := make([]float32, classes)
	for cycle := 0; cycle < cycles; cycle++ {
		if t.conf.Shuffle {
			t.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		start := time.Now()
		t.logger.Printf("Cycle %d: training on %d samples", cycle, total)

		var sum, window float64
		var seen, windowSeen int
		for done, i := range order {
			pixels, label := data.Sample(i)
			if label < 0 || label >= classes {
				return errors.Errorf("cycle %d, sample %d: label %d out of range [0, %d)", cycle, i, label, classes)
			}
			examples := []Example{{Pixels: pixels, Label: label}}
			if t.conf.Augmenter != nil {
				examples = append(examples, t.conf.Augmenter(examples[0], width, height)...)
			}

			for _, ex := range examples {
				target = OneHot(ex.Label, classes, target)
				loss, err := t.nn.Train(ex.Pixels, target)
				if err != nil {
					return errors.WithMessagef(err, "cycle %d, sample %d", cycle, i)
				}
				if !validLoss(loss) {
					return errors.Wrapf(mlp.ErrDiverged, "cycle %d, sample %d", cycle, i)
				}
				sum += float64(loss)
				window += float64(loss)
				seen++
				windowSeen++
			}

			if every := t.conf.LogEvery; every > 0 && (done+1)%every == 0 {
				running := float32(window / float64(windowSeen))
				t.logger.Printf("Cycle %d, sample %d/%d: running loss %.5f", cycle, done+1, total, running)
				t.report(Progress{Phase: "train", Cycle: cycle, Done: done + 1, Total: total, Loss: running})
				window, windowSeen = 0, 0
			}
		}

		r := Record{
			Phase:    "train",
			Cycle:    cycle,
			Samples:  seen,
			Loss:     float32(sum / float64(seen)),
			Duration: time.Since(start),
		}
		t.update(r)
		t.logger.Printf("Cycle %d done in %v: mean loss %.5f over %d updates", cycle, r.Duration, r.Loss, seen)
		t.report(Progress{Phase: "train", Cycle: cycle, Done: total, Total: total, Loss: r.Loss})
	}

	if t.conf.NNConf.Store == nil {
		return nil
	}
	if err := t.nn.Persist(); err != nil {
		return notSaved{err}
	}
	return nil
}

// notSaved is returned by Train when every cycle ran but the final save failed.
type notSaved struct{ error }

func (err notSaved) Error() string {
	return "training finished but the parameters were not saved: " + err.error.Error()
}

func (err notSaved) Cause() error { return err.error }

// IsNotSaved reports whether err came from Train failing only to persist the trained
// parameters. The network is still trained in memory and can be evaluated.
func IsNotSaved(err error) bool {
	for err != nil {
		if _, ok := err.(notSaved); ok {
			return true
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}
