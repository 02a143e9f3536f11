package main

import (
	"os"

	"github.com/satslab/satslab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
