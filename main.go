package main

import (
	"os"

	"github.com/matrixise/balance-lookup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
