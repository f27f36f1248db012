package main

import (
	"os"

	"github.com/lydakis/mcpbridge/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
