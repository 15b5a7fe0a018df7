package main

import (
	"context"
	"fmt"

	"github.com/ahmedtd/ffeval/toolbox"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// evaluateRows runs net over every row of x.  Rows are split into contiguous
// chunks, one per thread, and each thread works on its own clone of net.
//
// x (input) Shape (samples, inputSize)
// result Shape (samples, outputSize)
func evaluateRows(ctx context.Context, net *toolbox.Network[float64], x *mat.Dense, threads int) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if rows == 0 {
		return nil, fmt.Errorf("no input rows")
	}
	topology := net.Topology()
	if cols != topology[0] {
		return nil, &toolbox.ShapeMismatchError{What: "input columns", Got: cols, Want: topology[0]}
	}

	y := mat.NewDense(rows, topology[len(topology)-1], nil)

	g, ctx := errgroup.WithContext(ctx)
	chunk := (rows + threads - 1) / threads
	for begin := 0; begin < rows; begin += chunk {
		end := min(begin+chunk, rows)
		worker := net.Clone()

		g.Go(func() error {
			for k := begin; k < end; k++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				pred, err := worker.Calculate(x.RawRowView(k))
				if err != nil {
					return fmt.Errorf("while evaluating row %d: %w", k, err)
				}

				// Each worker owns a disjoint set of rows.
				y.SetRow(k, pred)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return y, nil
}
