package main

import (
	"os"

	"github.com/adi-verma/quantscanner/cmd/scanner/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
