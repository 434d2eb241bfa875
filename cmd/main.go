package main

import (
	"os"

	"github.com/storyweave/continuity/cmd/continuity"
)

func main() {
	if err := continuity.Execute(); err != nil {
		os.Exit(1)
	}
}
