package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/ahmedtd/ffeval/toolbox"
	"github.com/google/subcommands"
)

type RandomCommand struct {
	topology   string
	min, max   float64
	seed       int64
	outputFile string
}

var _ subcommands.Command = (*RandomCommand)(nil)

func (*RandomCommand) Name() string {
	return "random"
}

func (*RandomCommand) Synopsis() string {
	return "Write a network with uniformly random weights and biases"
}

func (*RandomCommand) Usage() string {
	return `random --topology=5,4,3,2 [--min=-1 --max=1 --seed=N] --output=FILE
`
}

func (c *RandomCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.topology, "topology", "", "Comma-separated neuron counts per layer, input layer first")
	f.Float64Var(&c.min, "min", -1, "Smallest value a parameter may take")
	f.Float64Var(&c.max, "max", 1, "Largest value a parameter may take (exclusive)")
	f.Int64Var(&c.seed, "seed", 12345, "Random seed")
	f.StringVar(&c.outputFile, "output", "random.genotype", "Path to write the weights (genotype text, or .safetensors)")
}

func (c *RandomCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *RandomCommand) executeErr(ctx context.Context) error {
	if c.min > c.max {
		return fmt.Errorf("--min (%v) may not exceed --max (%v)", c.min, c.max)
	}

	topology, err := toolbox.ParseTopology(c.topology)
	if err != nil {
		return fmt.Errorf("while parsing --topology: %w", err)
	}

	net, err := toolbox.MakeNetwork[float64](topology...)
	if err != nil {
		return err
	}

	net.RandomizeWeights(rand.New(rand.NewSource(c.seed)), c.min, c.max)

	if err := saveNetwork(c.outputFile, net); err != nil {
		return err
	}

	count := net.GenotypeLength()
	if isSafeTensorsFile(c.outputFile) {
		count = net.ParameterCount()
	}
	log.Printf("Wrote %d parameters to %s", count, c.outputFile)
	return nil
}
