package toolbox

import "fmt"

// Layer is one rank of neurons together with its biases and the weights of
// its connections to the following layer.
type Layer[T Float] struct {
	Size     int
	NextSize int // 0 for the output layer

	Neurons []T   // Shape (Size)
	Biases  []T   // Shape (Size)
	Weights [][]T // Shape (Size, NextSize).  Weights[i][j] connects neuron i to neuron j of the next layer.
}

// MakeLayer allocates a zeroed layer of size neurons feeding nextSize neurons.
func MakeLayer[T Float](size, nextSize int) *Layer[T] {
	if size <= 0 || nextSize < 0 {
		panic(fmt.Sprintf("invalid layer shape: size=%d nextSize=%d", size, nextSize))
	}

	// All rows share one backing array, stored row-major.
	backing := make([]T, size*nextSize)

	l := &Layer[T]{
		Size:     size,
		NextSize: nextSize,
		Neurons:  make([]T, size),
		Biases:   make([]T, size),
		Weights:  make([][]T, size),
	}
	for i := range l.Weights {
		l.Weights[i] = backing[i*nextSize : (i+1)*nextSize : (i+1)*nextSize]
	}

	return l
}

// ParameterCount is the length of the flat list taken by SetWeights.
func (l *Layer[T]) ParameterCount() int {
	return l.Size*l.NextSize + l.Size
}

// SetWeights fills the weights row by row and then the biases from one flat
// list laid out as
//
//	W[0][0] .. W[0][NextSize-1], W[1][0] .. W[Size-1][NextSize-1], B[0] .. B[Size-1]
//
// A list shorter than ParameterCount leaves the trailing slots at their
// previous values, and values beyond ParameterCount are dropped.
// Network.SetLayerWeights is the checked form.
func (l *Layer[T]) SetWeights(flat []T) {
	k := 0
	for i := 0; i < l.Size; i++ {
		n := copy(l.Weights[i], flat[k:])
		k += n
		if n < l.NextSize {
			return
		}
	}
	copy(l.Biases, flat[k:])
}

// Parameters flattens the layer in SetWeights order.
func (l *Layer[T]) Parameters() []T {
	out := make([]T, 0, l.ParameterCount())
	for _, row := range l.Weights {
		out = append(out, row...)
	}
	return append(out, l.Biases...)
}

func (l *Layer[T]) clone() *Layer[T] {
	c := MakeLayer[T](l.Size, l.NextSize)
	c.SetWeights(l.Parameters())
	copy(c.Neurons, l.Neurons)
	return c
}
