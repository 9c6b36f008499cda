package main

import (
	"os"

	"github.com/bimmerbailey/aoai/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
