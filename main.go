package main

import (
	"os"

	"github.com/jesbu1/rl-starter-files/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
