// Package main provides the CLI entry point for the rig task controller.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auralab/rig/cmd/rig/commands"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rig",
	Short: "rig - behavioral task controller",
	Long: `rig drives behavioral-experiment tasks: pulse-train compilation for
optogenetic lasers, trigger scheduling around stimulus playback, and the
trial stage machine.

Hardware access is out of scope for this CLI: run and console operate
against in-memory outputs, which makes them safe for validating configs
and rehearsing sessions on a workstation.`,
}

func init() {
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.ConsoleCmd)
}
