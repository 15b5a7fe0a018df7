package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/ahmedtd/ffeval/toolbox"
)

func isSafeTensorsFile(path string) bool {
	return strings.HasSuffix(path, ".safetensors")
}

// loadNetwork reads weights from path.  topologySpec is required for genotype
// files; for safetensors files it is optional and checked against the stored
// topology when given.
func loadNetwork(path, topologySpec string) (*toolbox.Network[float64], error) {
	var topology []int
	if topologySpec != "" {
		var err error
		topology, err = toolbox.ParseTopology(topologySpec)
		if err != nil {
			return nil, fmt.Errorf("while parsing --topology: %w", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening weights file: %w", err)
	}
	defer f.Close()

	if isSafeTensorsFile(path) {
		net, err := toolbox.ReadNetwork[float64](f)
		if err != nil {
			return nil, fmt.Errorf("while reading %s: %w", path, err)
		}
		if topology != nil && !slices.Equal(net.Topology(), topology) {
			return nil, fmt.Errorf("%s holds topology %v, but --topology is %v", path, net.Topology(), topology)
		}
		return net, nil
	}

	if topology == nil {
		return nil, fmt.Errorf("--topology is required for genotype file %s", path)
	}

	net, err := toolbox.MakeNetwork[float64](topology...)
	if err != nil {
		return nil, err
	}

	params, err := toolbox.ReadGenotype[float64](f)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", path, err)
	}

	if err := net.SetGenotype(params); err != nil {
		return nil, fmt.Errorf("while loading %s: %w", path, err)
	}

	return net, nil
}

// saveNetwork writes net to path, picking the format from the extension.
func saveNetwork(path string, net *toolbox.Network[float64]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating weights file: %w", err)
	}
	defer f.Close()

	if isSafeTensorsFile(path) {
		if err := toolbox.WriteNetwork(f, net); err != nil {
			return fmt.Errorf("while writing %s: %w", path, err)
		}
	} else {
		if err := toolbox.WriteGenotype(f, net.Genotype()); err != nil {
			return fmt.Errorf("while writing %s: %w", path, err)
		}
	}

	return f.Close()
}

// parseVector reads numbers separated by commas and/or whitespace.
func parseVector(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	v := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		v[i] = x
	}

	return v, nil
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
