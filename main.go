package main

import (
	"os"

	"github.com/conneroisu/docsman/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
