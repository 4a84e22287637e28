package main

import (
	"os"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
