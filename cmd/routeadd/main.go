package main

import (
	"fmt"
	"os"

	"github.com/kan/routeadd/cmd/routeadd/cmd"
)

var version = "dev"

func main() {
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
