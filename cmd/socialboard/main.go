package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/socialboard/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "socialboard: %v\n", err)
		os.Exit(1)
	}
}
