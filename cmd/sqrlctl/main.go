package main

import (
	"os"

	"github.com/aussiebroadwan/sqrl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
