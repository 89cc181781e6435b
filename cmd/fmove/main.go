package main

import (
	"fmt"
	"os"

	"github.com/woodgear/fmove/internal/cli"
)

var (
	// Set at build time via ldflags
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = fmt.Sprintf("%s (%s, %s)", version, gitCommit, buildDate)

	if err := cli.Execute(); err != nil {
		if cli.IsCancel(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}
