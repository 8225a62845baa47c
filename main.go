// Farmanet - backend server for the prescription & dispatch system.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"farmanet/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "farmanet: %v\n", err)
		os.Exit(1)
	}
}
