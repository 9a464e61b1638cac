package main

import (
	"os"

	"github.com/copyleftdev/uiverify/cmd/uiverify/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
