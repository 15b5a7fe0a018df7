package toolbox

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	tensors := map[string]*Tensor[float64]{
		"a": {V: []float64{1, 2, 3, 4, 5, 6}, Shape: []int{2, 3}},
		"b": {V: []float64{-0.5}, Shape: []int{1}},
	}
	metadata := map[string]string{"topology": "2,3"}

	var buf bytes.Buffer
	if err := WriteSafeTensors(&buf, tensors, metadata); err != nil {
		t.Fatalf("WriteSafeTensors: %v", err)
	}

	gotTensors, gotMetadata, err := ReadSafeTensors[float64](&buf)
	if err != nil {
		t.Fatalf("ReadSafeTensors: %v", err)
	}

	if diff := cmp.Diff(gotTensors, tensors); diff != "" {
		t.Errorf("Wrong tensors; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(gotMetadata, metadata); diff != "" {
		t.Errorf("Wrong metadata; diff (-got +want)\n%s", diff)
	}
}

func TestReadSafeTensorsConvertsF32(t *testing.T) {
	tensors := map[string]*Tensor[float32]{
		"w": {V: []float32{0.5, -2}, Shape: []int{2}},
	}

	var buf bytes.Buffer
	if err := WriteSafeTensors(&buf, tensors, nil); err != nil {
		t.Fatalf("WriteSafeTensors: %v", err)
	}
	if !strings.Contains(buf.String(), `"dtype":"F32"`) {
		t.Errorf("header does not declare F32")
	}

	got, metadata, err := ReadSafeTensors[float64](&buf)
	if err != nil {
		t.Fatalf("ReadSafeTensors: %v", err)
	}
	if metadata != nil {
		t.Errorf("metadata = %v, want nil", metadata)
	}

	want := map[string]*Tensor[float64]{
		"w": {V: []float64{0.5, -2}, Shape: []int{2}},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Wrong tensors; diff (-got +want)\n%s", diff)
	}
}

func makeSafeTensorsFile(header string, data []byte) *bytes.Buffer {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.WriteString(header)
	buf.Write(data)
	return &buf
}

func TestReadSafeTensorsErrors(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		data   []byte
	}{
		{
			name:   "unsupported dtype",
			header: `{"x":{"dtype":"I8","shape":[1],"data_offsets":[0,1]}}`,
			data:   []byte{0},
		},
		{
			name:   "offsets past end",
			header: `{"x":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`,
			data:   make([]byte, 4),
		},
		{
			name:   "offsets disagree with shape",
			header: `{"x":{"dtype":"F32","shape":[3],"data_offsets":[0,8]}}`,
			data:   make([]byte, 8),
		},
		{
			name:   "zero dimension",
			header: `{"x":{"dtype":"F64","shape":[0],"data_offsets":[0,0]}}`,
		},
		{
			name:   "bad json",
			header: `{"x":`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ReadSafeTensors[float64](makeSafeTensorsFile(tc.header, tc.data)); err == nil {
				t.Errorf("ReadSafeTensors succeeded, want error")
			}
		})
	}
}

func TestReadSafeTensorsTruncatedHeader(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(64))
	buf.WriteString(`{}`)

	if _, _, err := ReadSafeTensors[float64](&buf); err == nil {
		t.Errorf("ReadSafeTensors succeeded, want error")
	}
}

func TestNetworkTensorsOmitOutputWeights(t *testing.T) {
	net := mustMakeNetwork(t, 3, 2)

	tensors := map[string]*Tensor[float64]{}
	net.DumpTensors(tensors)

	keys := []string{}
	for k := range tensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	want := []string{"layer.0.biases", "layer.0.weights", "layer.1.biases"}
	if diff := cmp.Diff(keys, want); diff != "" {
		t.Errorf("Wrong tensor names; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(tensors["layer.0.weights"].Shape, []int{3, 2}); diff != "" {
		t.Errorf("Wrong weights shape; diff (-got +want)\n%s", diff)
	}
}

func TestLoadTensorsRejectsWrongShape(t *testing.T) {
	src := mustMakeNetwork(t, 3, 2)
	src.RandomizeWeights(rand.New(rand.NewSource(3)), -1, 1)
	tensors := map[string]*Tensor[float64]{}
	src.DumpTensors(tensors)

	dst := mustMakeNetwork(t, 2, 3)
	before := dst.Parameters()
	if err := dst.LoadTensors(tensors); err == nil {
		t.Fatalf("LoadTensors succeeded, want error")
	}
	if diff := cmp.Diff(dst.Parameters(), before); diff != "" {
		t.Errorf("Network modified; diff (-got +want)\n%s", diff)
	}

	delete(tensors, "layer.1.biases")
	if err := mustMakeNetwork(t, 3, 2).LoadTensors(tensors); err == nil {
		t.Errorf("LoadTensors with a missing tensor succeeded, want error")
	}
}

func TestNetworkRoundTrip(t *testing.T) {
	net := mustMakeNetwork(t, 5, 4, 3, 2)
	net.RandomizeWeights(rand.New(rand.NewSource(12345)), -1, 1)

	var buf bytes.Buffer
	if err := WriteNetwork(&buf, net); err != nil {
		t.Fatalf("WriteNetwork: %v", err)
	}

	got, err := ReadNetwork[float64](&buf)
	if err != nil {
		t.Fatalf("ReadNetwork: %v", err)
	}

	if diff := cmp.Diff(got.Topology(), net.Topology()); diff != "" {
		t.Errorf("Wrong topology; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(got.Parameters(), net.Parameters()); diff != "" {
		t.Errorf("Wrong parameters; diff (-got +want)\n%s", diff)
	}
}

func TestReadNetworkNeedsTopology(t *testing.T) {
	net := mustMakeNetwork(t, 2, 1)
	tensors := map[string]*Tensor[float64]{}
	net.DumpTensors(tensors)

	var buf bytes.Buffer
	if err := WriteSafeTensors(&buf, tensors, nil); err != nil {
		t.Fatalf("WriteSafeTensors: %v", err)
	}

	if _, err := ReadNetwork[float64](&buf); err == nil {
		t.Errorf("ReadNetwork succeeded without topology metadata, want error")
	}
}
