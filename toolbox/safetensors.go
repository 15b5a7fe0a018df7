package toolbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
)

// Tensor is a dense row-major array, used to move layer parameters in and out
// of safetensors files.
type Tensor[T Float] struct {
	V     []T
	Shape []int
}

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

const (
	safeTensorsMetadataKey = "__metadata__"

	// Upper bound on the JSON header, matching the upstream safetensors library.
	maxSafeTensorsHeaderLen = 100 << 20

	topologyMetadataKey = "topology"
)

func safeTensorsDType[T Float]() (dtype string, width int) {
	if bitSize[T]() == 32 {
		return "F32", 4
	}
	return "F64", 8
}

// WriteSafeTensors writes tensors, in sorted key order, with T's dtype.
// metadata may be nil.
func WriteSafeTensors[T Float](w io.Writer, tensors map[string]*Tensor[T], metadata map[string]string) error {
	dtype, width := safeTensorsDType[T]()

	header := map[string]any{}
	if len(metadata) > 0 {
		header[safeTensorsMetadataKey] = metadata
	}

	keys := slices.Sorted(maps.Keys(tensors))

	dataOffset := 0
	for _, k := range keys {
		if k == safeTensorsMetadataKey {
			return fmt.Errorf("tensor name %s is reserved", k)
		}

		begin := dataOffset
		dataOffset += len(tensors[k].V) * width
		end := dataOffset

		header[k] = SafeTensorInfo{
			DType:       dtype,
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, end},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

// ReadSafeTensors reads every tensor in r, converting F32 and F64 data to T.
// The returned metadata is nil when the file has none.
func ReadSafeTensors[T Float](r io.Reader) (map[string]*Tensor[T], map[string]string, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLen > maxSafeTensorsHeaderLen {
		return nil, nil, fmt.Errorf("header length %d is too large", headerLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("while reading header: %w", err)
	}

	header := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, fmt.Errorf("while parsing header: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("while reading tensor data: %w", err)
	}

	var metadata map[string]string
	tensors := map[string]*Tensor[T]{}
	for k, raw := range header {
		if k == safeTensorsMetadataKey {
			if err := json.Unmarshal(raw, &metadata); err != nil {
				return nil, nil, fmt.Errorf("while parsing metadata: %w", err)
			}
			continue
		}

		var hdr SafeTensorInfo
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return nil, nil, fmt.Errorf("while parsing header for %s: %w", k, err)
		}

		var width int
		switch hdr.DType {
		case "F32":
			width = 4
		case "F64":
			width = 8
		default:
			return nil, nil, fmt.Errorf("unsupported dtype %s for %s", hdr.DType, k)
		}

		size := 1
		for _, s := range hdr.Shape {
			if s < 1 {
				return nil, nil, fmt.Errorf("bad shape %v for %s", hdr.Shape, k)
			}
			size *= s
		}

		if len(hdr.DataOffsets) != 2 {
			return nil, nil, fmt.Errorf("bad data offsets %v for %s", hdr.DataOffsets, k)
		}
		begin, end := hdr.DataOffsets[0], hdr.DataOffsets[1]
		if begin < 0 || end > len(data) || end-begin != size*width {
			return nil, nil, fmt.Errorf("data offsets %v for %s do not fit shape %v in %d data bytes", hdr.DataOffsets, k, hdr.Shape, len(data))
		}

		tensors[k] = &Tensor[T]{
			V:     decodeValues[T](hdr.DType, data[begin:end]),
			Shape: hdr.Shape,
		}
	}

	return tensors, metadata, nil
}

// b must hold a whole number of little-endian values of dtype.
func decodeValues[T Float](dtype string, b []byte) []T {
	if dtype == "F32" {
		out := make([]T, len(b)/4)
		for i := range out {
			out[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
		}
		return out
	}

	out := make([]T, len(b)/8)
	for i := range out {
		out[i] = T(math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:])))
	}
	return out
}

func weightsKey(l int) string {
	return fmt.Sprintf("layer.%d.weights", l)
}

func biasesKey(l int) string {
	return fmt.Sprintf("layer.%d.biases", l)
}

// DumpTensors copies the network's parameters into tensors.  The output layer
// has no weights and so has no weights tensor.
func (net *Network[T]) DumpTensors(tensors map[string]*Tensor[T]) {
	for l, lay := range net.Layers {
		if lay.NextSize > 0 {
			w := &Tensor[T]{
				V:     make([]T, 0, lay.Size*lay.NextSize),
				Shape: []int{lay.Size, lay.NextSize},
			}
			for _, row := range lay.Weights {
				w.V = append(w.V, row...)
			}
			tensors[weightsKey(l)] = w
		}

		tensors[biasesKey(l)] = &Tensor[T]{
			V:     slices.Clone(lay.Biases),
			Shape: []int{lay.Size},
		}
	}
}

// LoadTensors restores parameters written by DumpTensors.  The network is left
// untouched if any tensor is missing or has the wrong shape.
func (net *Network[T]) LoadTensors(tensors map[string]*Tensor[T]) error {
	for l, lay := range net.Layers {
		if lay.NextSize > 0 {
			if err := checkTensor(tensors, weightsKey(l), []int{lay.Size, lay.NextSize}); err != nil {
				return err
			}
		}
		if err := checkTensor(tensors, biasesKey(l), []int{lay.Size}); err != nil {
			return err
		}
	}

	for l, lay := range net.Layers {
		if lay.NextSize > 0 {
			w := tensors[weightsKey(l)]
			for i, row := range lay.Weights {
				copy(row, w.V[i*lay.NextSize:])
			}
		}
		copy(lay.Biases, tensors[biasesKey(l)].V)
	}

	return nil
}

func checkTensor[T Float](tensors map[string]*Tensor[T], key string, wantShape []int) error {
	tensor, ok := tensors[key]
	if !ok {
		return fmt.Errorf("no entry for %s", key)
	}
	if !slices.Equal(tensor.Shape, wantShape) {
		return fmt.Errorf("wrong shape for %s; got %v want %v", key, tensor.Shape, wantShape)
	}
	return nil
}

// WriteNetwork stores net as a safetensors file, recording its topology in
// the metadata so ReadNetwork can rebuild it.
func WriteNetwork[T Float](w io.Writer, net *Network[T]) error {
	tensors := map[string]*Tensor[T]{}
	net.DumpTensors(tensors)

	metadata := map[string]string{
		topologyMetadataKey: FormatTopology(net.Topology()),
	}

	return WriteSafeTensors(w, tensors, metadata)
}

func ReadNetwork[T Float](r io.Reader) (*Network[T], error) {
	tensors, metadata, err := ReadSafeTensors[T](r)
	if err != nil {
		return nil, fmt.Errorf("while reading tensors: %w", err)
	}

	stored, ok := metadata[topologyMetadataKey]
	if !ok {
		return nil, fmt.Errorf("no %s entry in metadata", topologyMetadataKey)
	}

	topology, err := ParseTopology(stored)
	if err != nil {
		return nil, fmt.Errorf("while parsing stored topology: %w", err)
	}

	net, err := MakeNetwork[T](topology...)
	if err != nil {
		return nil, err
	}

	if err := net.LoadTensors(tensors); err != nil {
		return nil, fmt.Errorf("while restoring network: %w", err)
	}

	return net, nil
}
