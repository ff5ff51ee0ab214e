package digitnet

import (
	"github.com/pkg/errors"
)

// dummyInferer always answers with the same output.
type dummyInferer struct {
	output []float32
	closed bool
	err    error
}

func (d *dummyInferer) Infer(a []float32) ([]float32, error) {
	if d.err != nil {
		return nil, d.err
	}
	return append([]float32(nil), d.output...), nil
}

func (d *dummyInferer) Close() error {
	d.closed = true
	return d.err
}

// recorder is an OutputEncoder and Reporter that remembers what it was given.
type recorder struct {
	frames   []Misclassified
	progress []Progress
	fail     bool
	flushed  int
}

func (r *recorder) Encode(m Misclassified) error {
	r.frames = append(r.frames, m)
	if r.fail {
		return errors.New("no more room")
	}
	return nil
}

func (r *recorder) Flush() error {
	r.flushed++
	return nil
}

func (r *recorder) Report(p Progress) { r.progress = append(r.progress, p) }
