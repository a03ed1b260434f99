package main

import (
	"os"

	"github.com/kleinvault/kleinvault/internal/cli"
)

func main() {
	cli.InitCLI()
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
