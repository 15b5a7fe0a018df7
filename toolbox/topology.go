package toolbox

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseTopology reads layer sizes separated by commas, semicolons and/or
// whitespace, e.g. "5,4,3,2", "5;4;3;2" (topology save files) or "5 4 3 2".
func ParseTopology(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})

	topology := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidTopology, i, err)
		}
		topology[i] = n
	}

	if err := checkTopology(topology); err != nil {
		return nil, err
	}

	return topology, nil
}

// FormatTopology is the inverse of ParseTopology.
func FormatTopology(topology []int) string {
	parts := make([]string, len(topology))
	for i, n := range topology {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
