package toolbox

import (
	"fmt"
	"math/rand"
	"strings"
)

// Network is a fully-connected feed-forward network with softsign
// activations.  Layers[0] is the input layer and the last layer, whose
// NextSize is 0, is the output layer.
//
// A Network keeps its activations in the layers' Neuron buffers, so it must
// not be used from more than one goroutine at a time.  Use Clone to give each
// goroutine its own copy.
type Network[T Float] struct {
	Layers []*Layer[T]
}

// MakeNetwork builds a zero-weighted network.  topology lists the neuron count
// of every layer from input to output.
func MakeNetwork[T Float](topology ...int) (*Network[T], error) {
	if err := checkTopology(topology); err != nil {
		return nil, err
	}

	net := &Network[T]{
		Layers: make([]*Layer[T], len(topology)),
	}
	for l := range topology {
		nextSize := 0
		if l+1 < len(topology) {
			nextSize = topology[l+1]
		}
		net.Layers[l] = MakeLayer[T](topology[l], nextSize)
	}

	return net, nil
}

func (net *Network[T]) Topology() []int {
	topology := make([]int, len(net.Layers))
	for l, lay := range net.Layers {
		topology[l] = lay.Size
	}
	return topology
}

// ParameterCount is the length of the list taken by SetWeights.
func (net *Network[T]) ParameterCount() int {
	count := 0
	for _, lay := range net.Layers {
		count += lay.ParameterCount()
	}
	return count
}

// SetLayerWeights is Layer.SetWeights with the length of flat checked first.
func (net *Network[T]) SetLayerWeights(l int, flat []T) error {
	if l < 0 || l >= len(net.Layers) {
		return fmt.Errorf("layer index %d out of range [0, %d)", l, len(net.Layers))
	}
	lay := net.Layers[l]
	if len(flat) != lay.ParameterCount() {
		return &ShapeMismatchError{What: fmt.Sprintf("layer %d parameters", l), Got: len(flat), Want: lay.ParameterCount()}
	}

	lay.SetWeights(flat)
	return nil
}

// SetWeights assigns every layer from the concatenation of each layer's
// SetWeights list, input layer first.  The output layer contributes
// only its biases.  Nothing is modified when the length is wrong.
func (net *Network[T]) SetWeights(params []T) error {
	if want := net.ParameterCount(); len(params) != want {
		return &ShapeMismatchError{What: "network parameters", Got: len(params), Want: want}
	}

	for _, lay := range net.Layers {
		n := lay.ParameterCount()
		lay.SetWeights(params[:n])
		params = params[n:]
	}

	return nil
}

// Parameters flattens the network in SetWeights order.
func (net *Network[T]) Parameters() []T {
	params := make([]T, 0, net.ParameterCount())
	for _, lay := range net.Layers {
		params = append(params, lay.Parameters()...)
	}
	return params
}

// GenotypeLength is the length of the list taken by SetGenotype: one weight
// per connection plus one bias per non-input neuron.
func (net *Network[T]) GenotypeLength() int {
	count := 0
	for l := 1; l < len(net.Layers); l++ {
		count += (net.Layers[l-1].Size + 1) * net.Layers[l].Size
	}
	return count
}

// SetGenotype assigns the network from a genotype, the layout used by
// genotype files.  The genotype is grouped by receiving layer, hidden layers
// first:
//
//	for each layer l >= 1:
//		for each neuron i of l: Layers[l-1].Weights[0][i] .. Layers[l-1].Weights[Size-1][i]
//		Layers[l].Biases[0] .. Layers[l].Biases[Size-1]
//
// The input layer's biases are not part of the genotype and keep their
// values.  Nothing is modified when the length is wrong.
func (net *Network[T]) SetGenotype(params []T) error {
	if want := net.GenotypeLength(); len(params) != want {
		return &ShapeMismatchError{What: "genotype", Got: len(params), Want: want}
	}

	k := 0
	for l := 1; l < len(net.Layers); l++ {
		prev := net.Layers[l-1]
		cur := net.Layers[l]
		for i := 0; i < cur.Size; i++ {
			for j := 0; j < prev.Size; j++ {
				prev.Weights[j][i] = params[k]
				k++
			}
		}
		k += copy(cur.Biases, params[k:])
	}

	return nil
}

// Genotype flattens the network in SetGenotype order.
func (net *Network[T]) Genotype() []T {
	params := make([]T, 0, net.GenotypeLength())
	for l := 1; l < len(net.Layers); l++ {
		prev := net.Layers[l-1]
		cur := net.Layers[l]
		for i := 0; i < cur.Size; i++ {
			for j := 0; j < prev.Size; j++ {
				params = append(params, prev.Weights[j][i])
			}
		}
		params = append(params, cur.Biases...)
	}
	return params
}

// Calculate runs the network forward.
//
// input (input) is the activation of the input layer.  Shape (Layers[0].Size)
//
// The result is the output layer's neuron buffer.  It is overwritten by the
// next call, so copy it if it needs to outlive that.
func (net *Network[T]) Calculate(input []T) ([]T, error) {
	if len(input) != net.Layers[0].Size {
		return nil, &ShapeMismatchError{What: "input", Got: len(input), Want: net.Layers[0].Size}
	}

	copy(net.Layers[0].Neurons, input)

	for l := 1; l < len(net.Layers); l++ {
		prev := net.Layers[l-1]
		cur := net.Layers[l]

		for c := 0; c < cur.Size; c++ {
			var z T
			for p := 0; p < prev.Size; p++ {
				// The conversion stops the compiler from fusing this into an FMA.
				z += T(prev.Weights[p][c] * prev.Neurons[p])
			}
			z += cur.Biases[c]
			cur.Neurons[c] = Softsign(z)
		}
	}

	return net.Layers[len(net.Layers)-1].Neurons, nil
}

// Clone returns a deep copy sharing no storage with net.
func (net *Network[T]) Clone() *Network[T] {
	c := &Network[T]{
		Layers: make([]*Layer[T], len(net.Layers)),
	}
	for l, lay := range net.Layers {
		c.Layers[l] = lay.clone()
	}
	return c
}

// RandomizeWeights sets every weight and bias to a uniform value in
// [lo, lo+|hi-lo|).
func (net *Network[T]) RandomizeWeights(r *rand.Rand, lo, hi T) {
	span := abs(hi - lo)
	for _, lay := range net.Layers {
		for _, row := range lay.Weights {
			for j := range row {
				row[j] = uniform(r, lo, span)
			}
		}
		for i := range lay.Biases {
			lay.Biases[i] = uniform(r, lo, span)
		}
	}
}

func uniform[T Float](r *rand.Rand, lo, span T) T {
	hi := lo + span
	if hi == lo {
		return lo
	}
	for {
		// Rounding to float32 can land on hi; draw again.
		if v := lo + T(r.Float64())*span; v < hi {
			return v
		}
	}
}

func (net *Network[T]) String() string {
	var b strings.Builder
	for l, lay := range net.Layers {
		fmt.Fprintf(&b, "Layer %d:\n", l)
		for i, row := range lay.Weights {
			if len(row) == 0 {
				continue
			}
			for j, w := range row {
				if j > 0 {
					b.WriteByte(' ')
				}
				fmt.Fprintf(&b, "[%d,%d]: %v", i, j, w)
			}
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "biases: %v\n", lay.Biases)
	}
	return b.String()
}
