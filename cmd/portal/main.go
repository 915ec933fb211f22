package main

import (
	"context"
	"os"

	"github.com/bluebird-io/portal/cmd/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
