// Package cmd assembles the alprd command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/cmd/serve"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/buildinfo"
)

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "alprd",
		Short:   "License plate recognition bridge for home automation",
		Version: buildinfo.Version(),
	}

	rootCmd.AddCommand(serve.Command())

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	return RootCommand().Execute()
}
