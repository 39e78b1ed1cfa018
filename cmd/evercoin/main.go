package main

import (
	"os"

	"github.com/evercoin-dev/evercoin/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
