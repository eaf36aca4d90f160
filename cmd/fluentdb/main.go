package main

import (
	"fmt"
	"os"

	"github.com/eatmoreapple/fluentdb/cmd/fluentdb/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
