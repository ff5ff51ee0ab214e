package digitnet

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneHot(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0, 1, 0}, OneHot(3, 5, nil))

	prealloc := []float32{9, 9, 9}
	got := OneHot(0, 3, prealloc)
	assert.Equal(t, []float32{1, 0, 0}, got)
	assert.Equal(t, &prealloc[0], &got[0], "prealloc of the right length is reused")

	assert.Len(t, OneHot(1, 4, prealloc), 4)
	assert.Panics(t, func() { OneHot(5, 5, nil) })
	assert.Panics(t, func() { OneHot(-1, 5, nil) })
}

func TestShiftImage(t *testing.T) {
	//
	// ⎢ 1 2 3 ⎥
	// ⎢ 4 5 6 ⎥
	img := []float32{
		1, 2, 3,
		4, 5, 6,
	}
	right, err := ShiftImage(img, 3, 2, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2, 0, 4, 5}, right)

	up, err := ShiftImage(img, 3, 2, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6, 0, 0, 0}, up)

	diag, err := ShiftImage(img, 3, 2, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 2, 3, 0}, diag)

	same, err := ShiftImage(img, 3, 2, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, img, same)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, img, "the source is left alone")

	_, err = ShiftImage(img, 2, 2, 1, 0)
	assert.Error(t, err)
}

func TestMakeIterator(t *testing.T) {
	img := []float32{1, 2, 3, 4, 5, 6}
	it := MakeIterator(img, 2, 3)
	require.Len(t, it, 3)
	assert.Equal(t, []float32{5, 6}, it[2])
	it[1][0] = 30
	assert.Equal(t, float32(30), img[2], "rows share memory with the image")
	ReturnIterator(3, it)
}

func TestShiftAugmenter(t *testing.T) {
	ex := Example{Pixels: make([]float32, 9), Label: 4}
	ex.Pixels[4] = 1 // centre
	got := ShiftAugmenter(1)(ex, 3, 3)
	require.Len(t, got, 4)
	lit := map[int]bool{}
	for _, e := range got {
		assert.Equal(t, 4, e.Label)
		for i, v := range e.Pixels {
			if v == 1 {
				lit[i] = true
			}
		}
	}
	assert.Equal(t, map[int]bool{5: true, 3: true, 7: true, 1: true}, lit)

	assert.Nil(t, ShiftAugmenter(1)(ex, 2, 2))
	assert.Empty(t, ShiftAugmenter(0)(ex, 3, 3))
}

type flat []float32

func (f flat) Count() int                 { return 1 }
func (f flat) Sample(int) ([]float32, int) { return f, 0 }

func TestDims(t *testing.T) {
	w, h := dims(flat{}, 784)
	assert.Equal(t, []int{28, 28}, []int{w, h})
	w, h = dims(flat{}, 10)
	assert.Equal(t, []int{10, 1}, []int{w, h})
	w, h = dims(toySet(1, 1), 4)
	assert.Equal(t, []int{2, 2}, []int{w, h})
}

func TestStatisticsDump(t *testing.T) {
	s := makeStatistics()
	s.update(Record{Phase: "train", Cycle: 0, Samples: 10, Loss: 0.5, Duration: time.Second})
	s.update(Record{Phase: "train", Cycle: 1, Samples: 10, Loss: 0.25, Duration: time.Second})
	s.update(Record{Phase: "test", Samples: 5, Loss: 0.3, Accuracy: 0.8, Duration: time.Second / 2})

	last, ok := s.Last("train")
	require.True(t, ok)
	assert.Equal(t, 1, last.Cycle)
	_, ok = s.Last("nothing")
	assert.False(t, ok)

	dir, err := ioutil.TempDir("", "digitnet")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	filename := filepath.Join(dir, "stats.csv")
	require.NoError(t, s.Dump(filename))

	b, err := ioutil.ReadFile(filename)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "phase,cycle,samples,loss,accuracy,seconds", lines[0])
	assert.Equal(t, "train,1,10,0.250000,,1.000", lines[2])
	assert.Equal(t, "test,0,5,0.300000,0.8000,0.500", lines[3])
}
