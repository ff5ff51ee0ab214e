package main

import (
	"bytes"
	"io/ioutil"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorgonia/digitnet"
	"github.com/gorgonia/digitnet/dataset"
	mlp "github.com/gorgonia/digitnet/mlpnet"
	"github.com/gorgonia/digitnet/paramio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFlags(t *testing.T) {
	cases := []struct {
		mode, test string
		ok         bool
	}{
		{"train", "", true},
		{"train", "mnist_test.csv", true},
		{"test", "mnist_test.csv", true},
		{"test", "", false},
		{"play", "mnist_test.csv", false},
	}
	for _, c := range cases {
		err := checkFlags(c.mode, c.test)
		if c.ok {
			assert.NoError(t, err, "-mode %q -test %q", c.mode, c.test)
			continue
		}
		if assert.Error(t, err, "-mode %q -test %q", c.mode, c.test) {
			assert.Contains(t, err.Error(), "-mode")
		}
	}
}

func toySet(n int) *dataset.Set {
	s := &dataset.Set{Width: 2, Height: 2, Classes: 2}
	for i := 0; i < n; i++ {
		label := i % 2
		px := []float32{1, 1, 0, 0}
		if label == 1 {
			px = []float32{0, 0, 1, 1}
		}
		s.Pixels = append(s.Pixels, px)
		s.Labels = append(s.Labels, label)
	}
	return s
}

func newTrainer(t *testing.T, store mlp.Store) *digitnet.Trainer {
	nn := mlp.DefaultConf(4, 3, 2)
	nn.LearnRate = 0.1
	nn.Rand = rand.New(rand.NewSource(1))
	nn.Store = store
	tr, err := digitnet.New(digitnet.Config{NNConf: nn, Cycles: 2, Workers: 2, Rand: rand.New(rand.NewSource(2))})
	require.NoError(t, err)
	return tr
}

func TestSessionEvaluatesAfterFailedSave(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	tr := newTrainer(t, paramio.File{Path: filepath.Join(os.TempDir(), "no-such-dir-digitnet", "params")})

	res, err := session(tr, toySet(8), toySet(4), 0, logger)
	require.Error(t, err)
	assert.True(t, digitnet.IsNotSaved(err), "%v", err)
	require.NotNil(t, res, "the test set is evaluated even though the save failed")
	assert.Equal(t, 4, res.Total)
	assert.Contains(t, buf.String(), "not saved")
}

func TestSession(t *testing.T) {
	logger := log.New(ioutil.Discard, "", 0)

	dir, err := ioutil.TempDir("", "digitnet")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	tr := newTrainer(t, paramio.File{Path: filepath.Join(dir, "params")})

	res, err := session(tr, toySet(8), nil, 0, logger)
	require.NoError(t, err)
	assert.Nil(t, res)
	_, err = os.Stat(filepath.Join(dir, "params"))
	assert.NoError(t, err)

	res, err = session(tr, nil, toySet(4), 0, logger)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 4, res.Total)

	bad := toySet(4)
	bad.Labels[1] = 9
	res, err = session(tr, bad, toySet(4), 0, logger)
	assert.Error(t, err)
	assert.False(t, digitnet.IsNotSaved(err))
	assert.Nil(t, res, "a failed training run is not evaluated")
}
