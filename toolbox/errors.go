package toolbox

import (
	"errors"
	"fmt"
)

// ErrInvalidTopology is wrapped by every error caused by a bad topology.
var ErrInvalidTopology = errors.New("invalid topology")

// ShapeMismatchError reports a vector or parameter list whose length does not
// fit the network it was handed to.
type ShapeMismatchError struct {
	What string
	Got  int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s: got %d, want %d", e.What, e.Got, e.Want)
}

func checkTopology(topology []int) error {
	if len(topology) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidTopology, len(topology))
	}
	for l, s := range topology {
		if s <= 0 {
			return fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidTopology, l, s)
		}
	}
	return nil
}
