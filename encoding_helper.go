package digitnet

import (
	"math"

	"github.com/pkg/errors"
)

// OneHot encodes label as a vector of n zeroes with a 1 at index label. prealloc is
// reused if it has length n. It panics if label is not in [0, n).
func OneHot(label, n int, prealloc []float32) []float32 {
	if label < 0 || label >= n {
		panic(errors.Errorf("label %d out of range [0, %d)", label, n))
	}
	if len(prealloc) != n {
		prealloc = make([]float32, n)
	}
	for i := range prealloc {
		prealloc[i] = 0
	}
	prealloc[label] = 1
	return prealloc
}

// MakeIterator makes a row major iterator of an image: it[y][x] is pixel (x, y).
// The rows share memory with img.
func MakeIterator(img []float32, width, height int) (retVal [][]float32) {
	retVal = borrowIterator(height)
	for y := range retVal {
		start := y * width
		retVal[y] = img[start : start+width : start+width]
	}
	return
}

// ShiftImage translates an image by dx pixels to the right and dy pixels down.
// Pixels moved in from outside the image are 0.
func ShiftImage(img []float32, width, height, dx, dy int) ([]float32, error) {
	if width*height != len(img) {
		return nil, errors.Errorf("Cannot shift %d pixels as a %d×%d image", len(img), width, height)
	}
	shifted := make([]float32, len(img))
	src := MakeIterator(img, width, height)
	dst := MakeIterator(shifted, width, height)
	for y := 0; y < height; y++ {
		sy := y - dy
		if sy < 0 || sy >= height {
			continue
		}
		for x := 0; x < width; x++ {
			if sx := x - dx; sx >= 0 && sx < width {
				dst[y][x] = src[sy][sx]
			}
		}
	}
	ReturnIterator(height, src)
	ReturnIterator(height, dst)
	return shifted, nil
}

// ShiftAugmenter adds copies of every example moved by up to max pixels in each of
// the four directions.
func ShiftAugmenter(max int) Augmenter {
	return func(a Example, width, height int) []Example {
		retVal := make([]Example, 0, 4*max)
		for d := 1; d <= max; d++ {
			for _, off := range [][2]int{{d, 0}, {-d, 0}, {0, d}, {0, -d}} {
				shifted, err := ShiftImage(a.Pixels, width, height, off[0], off[1])
				if err != nil {
					return nil
				}
				retVal = append(retVal, Example{Pixels: shifted, Label: a.Label})
			}
		}
		return retVal
	}
}

// dims returns the width and height of data's samples. Datasets that are not Imagers
// are assumed square, or a single row if the sample size is not a perfect square.
func dims(data Dataset, size int) (width, height int) {
	if im, ok := data.(Imager); ok {
		if w, h := im.Dims(); w*h == size {
			return w, h
		}
	}
	side := int(math.Sqrt(float64(size)))
	if side*side == size {
		return side, side
	}
	return size, 1
}
