package main

import (
	"os"

	"github.com/efund/unitperf/cmd/unitperf/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
