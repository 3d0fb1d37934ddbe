package main

import (
	"os"

	"github.com/positivef/verifycache/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
