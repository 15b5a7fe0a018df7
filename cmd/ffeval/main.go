// Command ffeval evaluates softsign feed-forward networks.
//
// To evaluate one input: `go run ./cmd/ffeval eval --topology=5,4,3,2 --weights=car.genotype --input=0.1,0.4,1,0.4,0.1`
//
// To evaluate every row of an array: `go run ./cmd/ffeval batch --weights=car.safetensors --inputs=sensors.npy --outputs=controls.npy`
//
// Weights are either genotype text (values separated by ';') or, for files
// ending in .safetensors, a checkpoint written by `ffeval convert`.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&EvalCommand{}, "")
	subcommands.Register(&BatchCommand{}, "")
	subcommands.Register(&RandomCommand{}, "")
	subcommands.Register(&ConvertCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
