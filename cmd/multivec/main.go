// Command multivec loads multi-vector corpora into a vector backend, ranks
// query sets with MaxSim and scores result files against a ground truth.
//
// Usage:
//
//	multivec load   --corpus corpus.mvec [--backend sqlite]
//	multivec search --queries queries.mvec [--mode delegated] [--results out.txt]
//	multivec recall --results out.txt [--ground-truth ground_truth.txt]
//
// An in-memory search without --results writes the ground-truth file. A
// delegated search without --results writes ground_truth_delegated.txt next
// to it and reports recall against the ground truth.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "multivec: %v\n", err)
		os.Exit(1)
	}
}
