package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// CSVOpts describes the shape of the rows in a CSV file.
type CSVOpts struct {
	Width, Height int
	Classes       int
	Limit         int // stop after this many samples. 0 reads everything
}

// MNISTOpts is the MNIST CSV layout: 784 pixels and 10 classes per row.
func MNISTOpts() CSVOpts {
	return CSVOpts{Width: MNISTWidth, Height: MNISTHeight, Classes: MNISTClasses}
}

// ReadCSV reads rows of the form label,p0,...,pN. A first row whose label does not
// parse as an integer is treated as a header and skipped.
func ReadCSV(r io.Reader, opts CSVOpts) (*Set, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Classes <= 0 {
		return nil, errors.Errorf("invalid CSV options %+v", opts)
	}
	n := opts.Width * opts.Height
	retVal := &Set{Width: opts.Width, Height: opts.Height, Classes: opts.Classes}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = n + 1
	cr.ReuseRecord = true
	for row := 1; opts.Limit <= 0 || retVal.Count() < opts.Limit; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", row)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			if row == 1 {
				continue
			}
			return nil, errors.Wrapf(err, "row %d: label", row)
		}
		pixels := make([]float32, n)
		for i, field := range record[1:] {
			v, err := strconv.ParseUint(field, 10, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d: pixel %d", row, i)
			}
			pixels[i] = scale(byte(v))
		}
		if err = retVal.append(pixels, label); err != nil {
			return nil, errors.WithMessagef(err, "row %d", row)
		}
	}
	return retVal, nil
}

// LoadCSV reads a CSV file from disk.
func LoadCSV(path string, opts CSVOpts) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	retVal, err := ReadCSV(bufio.NewReader(f), opts)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return retVal, nil
}
