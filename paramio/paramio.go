// Package paramio persists a flat parameter vector as raw big-endian float32s.
//
// There is no header. A file of n bytes holds n/4 parameters, and the reader
// must already know the topology the vector belongs to.
package paramio

import (
	"bufio"
	"encoding/binary"
	"io"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Width is the number of bytes per parameter.
const Width = 4

// File is a parameter vector stored at Path. It satisfies mlp.Store.
type File struct {
	Path string
}

// Load reads the whole file. A missing file is returned as an error for which
// os.IsNotExist(errors.Cause(err)) holds.
func (f File) Load() ([]float32, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	retVal, err := Decode(bufio.NewReader(r))
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %v", f.Path)
	}
	return retVal, nil
}

// Save writes params to a temporary file next to Path and renames it over Path,
// so a failed save leaves any previous file intact.
func (f File) Save(params []float32) (err error) {
	dir, base := filepath.Split(f.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := ioutil.TempFile(dir, base+".tmp")
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = Encode(w, params); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return errors.WithStack(err)
	}
	if err = tmp.Sync(); err != nil {
		return errors.WithStack(err)
	}
	if err = tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err = os.Rename(tmp.Name(), f.Path); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Encode writes every value as 4 big-endian bytes.
func Encode(w io.Writer, params []float32) error {
	var buf [Width]byte
	for i, v := range params {
		binary.BigEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return errors.Wrapf(err, "writing parameter %d", i)
		}
	}
	return nil
}

// Decode reads values until EOF. A trailing partial value is an error.
func Decode(r io.Reader) ([]float32, error) {
	var retVal []float32
	var buf [Width]byte
	for {
		n, err := io.ReadFull(r, buf[:])
		switch {
		case err == io.EOF:
			return retVal, nil
		case err == io.ErrUnexpectedEOF:
			return nil, errors.Errorf("truncated parameter vector: %d trailing bytes after %d parameters", n, len(retVal))
		case err != nil:
			return nil, errors.WithStack(err)
		}
		retVal = append(retVal, math.Float32frombits(binary.BigEndian.Uint32(buf[:])))
	}
}
