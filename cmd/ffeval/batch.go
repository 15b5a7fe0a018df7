package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

type BatchCommand struct {
	topology    string
	weightsFile string
	inputsFile  string
	outputsFile string
	threads     int
}

var _ subcommands.Command = (*BatchCommand)(nil)

func (*BatchCommand) Name() string {
	return "batch"
}

func (*BatchCommand) Synopsis() string {
	return "Evaluate the network on every row of a .npy array"
}

func (*BatchCommand) Usage() string {
	return `batch --weights=FILE --inputs=in.npy --outputs=out.npy [--threads=N]

Reads a 2-D float64 array of shape (samples, inputSize) and writes a 2-D array
of shape (samples, outputSize).
`
}

func (c *BatchCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.topology, "topology", "", "Comma-separated neuron counts per layer, input layer first")
	f.StringVar(&c.weightsFile, "weights", "", "Path to a genotype or .safetensors weights file")
	f.StringVar(&c.inputsFile, "inputs", "", "Path to the .npy input array")
	f.StringVar(&c.outputsFile, "outputs", "outputs.npy", "Path to write the .npy output array")
	f.IntVar(&c.threads, "threads", 1, "Number of networks evaluating rows in parallel")
}

func (c *BatchCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *BatchCommand) executeErr(ctx context.Context) error {
	if c.threads < 1 {
		return fmt.Errorf("--threads must be at least 1, got %d", c.threads)
	}

	net, err := loadNetwork(c.weightsFile, c.topology)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}

	x, err := loadInputs(c.inputsFile)
	if err != nil {
		return fmt.Errorf("while loading inputs: %w", err)
	}

	start := time.Now()
	y, err := evaluateRows(ctx, net, x, c.threads)
	if err != nil {
		return err
	}
	rows, _ := y.Dims()
	log.Printf("Evaluated %d rows on %d threads in %v", rows, c.threads, time.Since(start))

	f, err := os.Create(c.outputsFile)
	if err != nil {
		return fmt.Errorf("while creating outputs file: %w", err)
	}
	defer f.Close()

	if err := npyio.Write(f, y); err != nil {
		return fmt.Errorf("while writing outputs: %w", err)
	}

	return f.Close()
}

func loadInputs(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening inputs file: %w", err)
	}
	defer f.Close()

	// numpy writes C-order arrays, which is the row-major layout mat.Dense
	// uses, so each sample is one contiguous row.
	var x mat.Dense
	if err := npyio.Read(f, &x); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", path, err)
	}

	return &x, nil
}
