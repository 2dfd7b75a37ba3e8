package main

import (
	"os"

	"github.com/oredesk/oredesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
