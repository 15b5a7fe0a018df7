package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/subcommands"
)

type EvalCommand struct {
	topology    string
	weightsFile string
	input       string
	verbose     bool
}

var _ subcommands.Command = (*EvalCommand)(nil)

func (*EvalCommand) Name() string {
	return "eval"
}

func (*EvalCommand) Synopsis() string {
	return "Evaluate the network on one input vector"
}

func (*EvalCommand) Usage() string {
	return `eval --topology=2,2,1 --weights=FILE --input=1,2
`
}

func (c *EvalCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.topology, "topology", "", "Comma-separated neuron counts per layer, input layer first")
	f.StringVar(&c.weightsFile, "weights", "", "Path to a genotype or .safetensors weights file")
	f.StringVar(&c.input, "input", "", "Comma-separated input vector")
	f.BoolVar(&c.verbose, "v", false, "Log the network weights before evaluating")
}

func (c *EvalCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *EvalCommand) executeErr(ctx context.Context) error {
	net, err := loadNetwork(c.weightsFile, c.topology)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}
	if c.verbose {
		log.Printf("Network:\n%s", net)
	}

	input, err := parseVector(c.input)
	if err != nil {
		return fmt.Errorf("while parsing --input: %w", err)
	}

	output, err := net.Calculate(input)
	if err != nil {
		return fmt.Errorf("while evaluating: %w", err)
	}

	fmt.Fprintln(os.Stdout, formatVector(output))
	return nil
}
