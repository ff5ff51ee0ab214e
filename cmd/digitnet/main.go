package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorgonia/digitnet"
	"github.com/gorgonia/digitnet/dataset"
	"github.com/gorgonia/digitnet/encoding/gif"
	"github.com/gorgonia/digitnet/encoding/mjpeg"
	mlp "github.com/gorgonia/digitnet/mlpnet"
	"github.com/gorgonia/digitnet/paramio"
	"github.com/pkg/errors"

	"net/http"
	_ "net/http/pprof"
)

var (
	mode     = flag.String("mode", "train", "train: train then evaluate if -test is set. test: evaluate only")
	trainSet = flag.String("train", "training/mnist_train.csv", "training set. A CSV file, or a directory holding the IDX files")
	testSet  = flag.String("test", "", "test set. A CSV file, or a directory holding the IDX files")
	limit    = flag.Int("limit", 0, "use at most this many samples of each set")
	params   = flag.String("params", "trained_data.bytes", "parameter file. Loaded if it exists, written after training")

	cycles   = flag.Int("cycles", 1, "passes over the training set")
	sizes    = flag.String("sizes", "784,256,256,10", "comma separated neuron count per layer, input first")
	hidden   = flag.String("hidden", "sigmoid", "activation of the hidden layers")
	output   = flag.String("output", "softmax", "activation of the output layer")
	lr       = flag.Float64("lr", 0.001, "learning rate")
	momentum = flag.Float64("momentum", 0.5, "momentum")
	initFn   = flag.String("init", "uniform", "parameter initialization: uniform or he")
	seed     = flag.Int64("seed", 0, "random seed. 0 seeds from the clock")
	shuffle  = flag.Bool("shuffle", false, "shuffle the training set every cycle")
	shift    = flag.Int("shift", 0, "also train on copies shifted by up to this many pixels")
	logEvery = flag.Int("logevery", 1000, "log progress every this many samples")

	workers = flag.Int("workers", 0, "concurrent inferers during evaluation. 0 means one per CPU")
	graph   = flag.Bool("graph", false, "evaluate with compiled expression graphs")

	gifOut   = flag.String("gif", "", "write misclassified test samples to this animated GIF")
	mjpegOut = flag.String("mjpeg", "", "stream misclassified test samples as MJPEG on this address")
	wsOut    = flag.String("ws", "", "serve a websocket progress feed on this address")
	dotOut   = flag.String("dot", "", "write the network topology as graphviz to this file")
	stats    = flag.String("stats", "", "write per cycle statistics as CSV to this file")
)

func parseSizes(s string) ([]int, error) {
	var retVal []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(err, "layer size %q", f)
		}
		retVal = append(retVal, n)
	}
	return retVal, nil
}

func load(path string, train bool) (*dataset.Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var s *dataset.Set
	if info.IsDir() {
		s, err = dataset.LoadIDX(path, train)
	} else {
		opts := dataset.MNISTOpts()
		opts.Limit = *limit
		s, err = dataset.LoadCSV(path, opts)
	}
	if err != nil {
		return nil, err
	}
	return s.Limit(*limit), nil
}

func nnConf(logger *log.Logger, rnd *rand.Rand) (mlp.Config, error) {
	var conf mlp.Config
	sz, err := parseSizes(*sizes)
	if err != nil {
		return conf, err
	}
	conf = mlp.DefaultConf(sz...)
	if conf.Hidden, err = mlp.ParseActivation(*hidden); err != nil {
		return conf, err
	}
	if conf.Output, err = mlp.ParseActivation(*output); err != nil {
		return conf, err
	}
	conf.LearnRate = float32(*lr)
	conf.Momentum = float32(*momentum)
	switch *initFn {
	case "uniform":
	case "he":
		conf.WeightInit = mlp.He()
	default:
		return conf, errors.Errorf("unknown initialization %q", *initFn)
	}
	conf.Rand = rnd
	conf.Logger = logger
	conf.Store = paramio.File{Path: *params}
	return conf, nil
}

var listening = make(map[string]bool)

// serve registers h on the default mux and listens on addr once per address.
func serve(addr string, h http.Handler, path string) {
	http.Handle(path, h)
	log.Printf("http://%v%v", addr, path)
	if listening[addr] {
		return
	}
	listening[addr] = true
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Println(err)
		}
	}()
}

func run() error {
	if err := checkFlags(*mode, *testSet); err != nil {
		return err
	}
	logger := log.New(os.Stderr, "", log.Ltime)
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	logger.Printf("Seed %d", *seed)

	nn, err := nnConf(logger, rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}
	conf := digitnet.Config{
		NNConf:         nn,
		Cycles:         *cycles,
		LogEvery:       *logEvery,
		Shuffle:        *shuffle,
		Rand:           rand.New(rand.NewSource(*seed + 1)),
		Workers:        *workers,
		GraphInference: *graph,
		Logger:         logger,
	}
	if *shift > 0 {
		conf.Augmenter = digitnet.ShiftAugmenter(*shift)
	}

	var encoders []digitnet.OutputEncoder
	if *gifOut != "" {
		f, err := os.Create(*gifOut)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		encoders = append(encoders, gif.NewGifEncoder(f, 4))
	}
	if *mjpegOut != "" {
		enc := mjpeg.NewEncoder(8)
		serve(*mjpegOut, enc, "/mjpeg")
		encoders = append(encoders, enc)
	}
	switch len(encoders) {
	case 0:
	case 1:
		conf.Encoder = encoders[0]
	default:
		conf.Encoder = multiEncoder(encoders)
	}
	if *wsOut != "" {
		f := newFeed()
		serve(*wsOut, f, "/ws")
		conf.Reporter = f
	}

	t, err := digitnet.New(conf)
	if err != nil {
		return err
	}
	logger.Printf("Network %v: %d parameters", t.Network().Sizes(), t.Network().ParamCount())
	if *dotOut != "" {
		if err = ioutil.WriteFile(*dotOut, []byte(t.Network().ToDot()), 0644); err != nil {
			return errors.WithStack(err)
		}
	}

	var train, test digitnet.Dataset
	if *mode == "train" {
		data, err := load(*trainSet, true)
		if err != nil {
			return errors.WithMessage(err, "Unable to load the training set")
		}
		train = data
	}
	if *testSet != "" {
		data, err := load(*testSet, false)
		if err != nil {
			return errors.WithMessage(err, "Unable to load the test set")
		}
		test = data
	}

	res, err := session(t, train, test, *cycles, logger)
	if res != nil {
		fmt.Println(res)
		if conf.Encoder != nil {
			if ferr := conf.Encoder.Flush(); ferr != nil {
				logger.Printf("Unable to flush misclassified samples: %v", ferr)
			}
		}
	}
	if *stats != "" {
		if serr := t.Dump(*stats); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// checkFlags rejects flag combinations that cannot run before anything is loaded.
func checkFlags(mode, testSet string) error {
	switch mode {
	case "train":
	case "test":
		if testSet == "" {
			return errors.New("-mode test needs a test set: pass -test <csv file or IDX directory>")
		}
	default:
		return errors.Errorf("unknown mode %q: use -mode train or -mode test", mode)
	}
	return nil
}

// session trains on train if it is not nil, then evaluates on test if it is not nil.
// A failed final save does not stop the evaluation: it is logged, and returned once the
// evaluation is done. res is nil when nothing was evaluated.
func session(t *digitnet.Trainer, train, test digitnet.Dataset, cycles int, logger *log.Logger) (res *digitnet.Result, err error) {
	var saveErr error
	if train != nil {
		if err = t.Train(train, cycles); err != nil {
			if !digitnet.IsNotSaved(err) {
				return nil, err
			}
			logger.Printf("%v", err)
			saveErr = err
		}
	}
	if test == nil {
		return nil, saveErr
	}
	r, err := t.Evaluate(test)
	if err != nil {
		return nil, err
	}
	return &r, saveErr
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("%+v", err)
	}
}

// multiEncoder fans every sample out to several encoders.
type multiEncoder []digitnet.OutputEncoder

func (m multiEncoder) Encode(mc digitnet.Misclassified) error {
	var err error
	for _, enc := range m {
		if e := enc.Encode(mc); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func (m multiEncoder) Flush() error {
	var err error
	for _, enc := range m {
		if e := enc.Flush(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
