package main

import (
	"context"
	"flag"
	"log"

	"github.com/google/subcommands"
)

type ConvertCommand struct {
	topology string
	fromFile string
	toFile   string
}

var _ subcommands.Command = (*ConvertCommand)(nil)

func (*ConvertCommand) Name() string {
	return "convert"
}

func (*ConvertCommand) Synopsis() string {
	return "Convert weights between genotype text and safetensors"
}

func (*ConvertCommand) Usage() string {
	return `convert [--topology=5,4,3,2] --from=FILE --to=FILE

Files ending in .safetensors are checkpoints; anything else is genotype text.
--topology is required when reading genotype text.
`
}

func (c *ConvertCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.topology, "topology", "", "Comma-separated neuron counts per layer, input layer first")
	f.StringVar(&c.fromFile, "from", "", "Path to read weights from")
	f.StringVar(&c.toFile, "to", "", "Path to write weights to")
}

func (c *ConvertCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ConvertCommand) executeErr(ctx context.Context) error {
	net, err := loadNetwork(c.fromFile, c.topology)
	if err != nil {
		return err
	}

	if err := saveNetwork(c.toFile, net); err != nil {
		return err
	}

	log.Printf("Converted %s (topology %v) to %s", c.fromFile, net.Topology(), c.toFile)
	return nil
}
