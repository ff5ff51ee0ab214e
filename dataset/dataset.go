// Package dataset loads labeled digit images.
//
// Two on-disk formats are understood: the CSV format (one row per image,
// label first, then the pixels row by row) and the IDX format the MNIST
// images are distributed in. Pixel intensities are scaled from [0, 255]
// to [0, 1].
package dataset

import "github.com/pkg/errors"

const (
	// MNISTWidth and MNISTHeight are the dimensions of an MNIST digit.
	MNISTWidth  = 28
	MNISTHeight = 28

	// MNISTClasses is the number of digit classes.
	MNISTClasses = 10
)

// Set is an in-memory collection of labeled samples.
type Set struct {
	Pixels [][]float32
	Labels []int

	Width, Height int
	Classes       int
}

// Count is the number of samples.
func (s *Set) Count() int { return len(s.Labels) }

// Sample returns the pixels and label of sample i. The pixels are not copied.
func (s *Set) Sample(i int) ([]float32, int) { return s.Pixels[i], s.Labels[i] }

// Dims is the width and height of every sample.
func (s *Set) Dims() (width, height int) { return s.Width, s.Height }

// Limit returns a view of the first n samples. n <= 0 or n beyond the end returns s.
func (s *Set) Limit(n int) *Set {
	if n <= 0 || n >= s.Count() {
		return s
	}
	retVal := *s
	retVal.Pixels = s.Pixels[:n]
	retVal.Labels = s.Labels[:n]
	return &retVal
}

func (s *Set) append(pixels []float32, label int) error {
	if label < 0 || label >= s.Classes {
		return errors.Errorf("label %d out of range [0, %d)", label, s.Classes)
	}
	s.Pixels = append(s.Pixels, pixels)
	s.Labels = append(s.Labels, label)
	return nil
}

func scale(b byte) float32 { return float32(b) / 255 }
