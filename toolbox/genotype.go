package toolbox

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Genotype files hold a network's parameters (see Network.Parameters) as text,
// one value after another separated by ';', for example
//
//	0.25;-1.5;3;0
//
// Values are written with the fewest digits that read back to the same T.

// WriteGenotype writes params in the genotype text format.
func WriteGenotype[T Float](w io.Writer, params []T) error {
	bits := bitSize[T]()

	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(float64(p), 'g', -1, bits))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("while writing genotype: %w", err)
	}
	return nil
}

// ReadGenotype parses the genotype text format.  Whitespace around values is
// ignored; an empty or malformed entry is an error.
func ReadGenotype[T Float](r io.Reader) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("while reading genotype: %w", err)
	}

	bits := bitSize[T]()
	fields := strings.Split(string(data), ";")
	params := make([]T, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), bits)
		if err != nil {
			return nil, fmt.Errorf("while parsing genotype entry %d: %w", i, err)
		}
		params = append(params, T(v))
	}

	return params, nil
}
