package main

import (
	"context"
	"fmt"
	"os"

	"github.com/empower1/epochcore/cmd/epochmgrd/cli"
	_ "go.uber.org/automaxprocs"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
