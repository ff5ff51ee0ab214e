package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	idxLabelMagic = 0x00000801
	idxImageMagic = 0x00000803

	maxIDXSide = 1 << 12 // rows and columns
)

// ReadIDX reads an IDX image file and its matching IDX label file.
func ReadIDX(images, labels io.Reader) (*Set, error) {
	var hdr struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(images, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "image header")
	}
	if hdr.Magic != idxImageMagic {
		return nil, errors.Errorf("invalid image magic number %#08x", hdr.Magic)
	}
	if hdr.Rows == 0 || hdr.Cols == 0 || hdr.Rows > maxIDXSide || hdr.Cols > maxIDXSide {
		return nil, errors.Errorf("invalid image size %d×%d", hdr.Cols, hdr.Rows)
	}

	var lhdr struct {
		Magic, Count uint32
	}
	if err := binary.Read(labels, binary.BigEndian, &lhdr); err != nil {
		return nil, errors.Wrap(err, "label header")
	}
	if lhdr.Magic != idxLabelMagic {
		return nil, errors.Errorf("invalid label magic number %#08x", lhdr.Magic)
	}
	if lhdr.Count != hdr.Count {
		return nil, errors.Errorf("%d images but %d labels", hdr.Count, lhdr.Count)
	}

	// the header is not trusted for allocation: labels grow as they are read
	ls, err := ioutil.ReadAll(io.LimitReader(labels, int64(lhdr.Count)))
	if err != nil {
		return nil, errors.Wrap(err, "labels")
	}
	if len(ls) != int(lhdr.Count) {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "labels: header says %d, read %d", lhdr.Count, len(ls))
	}

	n := int(hdr.Rows) * int(hdr.Cols)
	retVal := &Set{
		Width:   int(hdr.Cols),
		Height:  int(hdr.Rows),
		Classes: MNISTClasses,
	}
	buf := make([]byte, n)
	for i := range ls {
		if _, err := io.ReadFull(images, buf); err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		pixels := make([]float32, n)
		for j, b := range buf {
			pixels[j] = scale(b)
		}
		if err := retVal.append(pixels, int(ls[i])); err != nil {
			return nil, errors.WithMessagef(err, "image %d", i)
		}
	}
	return retVal, nil
}

// LoadIDX reads the MNIST training or test set from dir, using the file names the
// set is distributed under. Gzipped files (with a .gz suffix) are read as well.
func LoadIDX(dir string, train bool) (*Set, error) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}
	images, err := openIDX(filepath.Join(dir, prefix+"-images-idx3-ubyte"))
	if err != nil {
		return nil, err
	}
	defer images.Close()
	labels, err := openIDX(filepath.Join(dir, prefix+"-labels-idx1-ubyte"))
	if err != nil {
		return nil, err
	}
	defer labels.Close()

	return ReadIDX(images, labels)
}

type idxFile struct {
	io.Reader
	closers []io.Closer
}

func (f *idxFile) Close() error {
	var err error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if cerr := f.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func openIDX(path string) (*idxFile, error) {
	f, err := os.Open(path)
	if err == nil {
		return &idxFile{Reader: bufio.NewReader(f), closers: []io.Closer{f}}, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.WithStack(err)
	}

	if f, err = os.Open(path + ".gz"); err != nil {
		return nil, errors.WithStack(err)
	}
	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "%v.gz", path)
	}
	return &idxFile{Reader: gz, closers: []io.Closer{f, gz}}, nil
}
