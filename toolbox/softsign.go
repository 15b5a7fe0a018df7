package toolbox

import (
	"math"

	"github.com/chewxy/math32"
)

// Float is the set of element types a Network can be evaluated in.  float64
// is what genotype files carry; float32 matches F32 checkpoints.
type Float interface {
	float32 | float64
}

// Softsign is the activation applied to every non-input neuron:
//
//	softsign(x) = x / (|x| + 1)
//
// It is odd, strictly increasing, and bounded to (-1, 1).
func Softsign[T Float](x T) T {
	return x / (abs(x) + 1)
}

func abs[T Float](x T) T {
	switch v := any(x).(type) {
	case float32:
		return T(math32.Abs(v))
	default:
		return T(math.Abs(float64(x)))
	}
}

// bitSize reports the width of T for strconv and the safetensors dtype.
func bitSize[T Float]() int {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return 32
	}
	return 64
}
