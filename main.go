package main

import (
	"os"

	"github.com/abhisek/trainsched/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
