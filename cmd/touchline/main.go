package main

import (
	"os"

	"github.com/mlandt/touchline/cmd/touchline/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
