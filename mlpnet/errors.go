package mlp

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyVector is returned when a reduction such as Argmax is given nothing.
	ErrEmptyVector = errors.New("empty vector")

	// ErrDiverged is returned when a loss stops being finite.
	ErrDiverged = errors.New("loss is not finite")
)

// ShapeMismatch is returned when a vector or matrix does not fit the topology.
// Layer is -1 when the mismatch is not tied to a single layer.
type ShapeMismatch struct {
	Layer int
	What  string
	Want  int
	Got   int
}

func (err ShapeMismatch) Error() string {
	if err.Layer < 0 {
		return fmt.Sprintf("shape mismatch: %s has %d values, expected %d", err.What, err.Got, err.Want)
	}
	return fmt.Sprintf("shape mismatch at layer %d: %s has %d values, expected %d", err.Layer, err.What, err.Got, err.Want)
}

// InvalidTopology is returned by New when the layer sizes cannot form a network.
type InvalidTopology struct {
	Sizes  []int
	Reason string
}

func (err InvalidTopology) Error() string {
	return fmt.Sprintf("invalid topology %v: %s", err.Sizes, err.Reason)
}

// IsShapeMismatch reports whether the cause of err is a ShapeMismatch.
func IsShapeMismatch(err error) bool {
	_, ok := errors.Cause(err).(ShapeMismatch)
	return ok
}

// IsInvalidTopology reports whether the cause of err is an InvalidTopology.
func IsInvalidTopology(err error) bool {
	_, ok := errors.Cause(err).(InvalidTopology)
	return ok
}
