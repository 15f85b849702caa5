package main

import (
	"os"

	"github.com/agusespa/testscope/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
