package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "Multi-agent swarm coordination engine",
	Long: `Hive coordinates a swarm of specialized agents on shared objectives.

It decomposes natural-language objectives into dependency-ordered task
graphs, assigns tasks to the most suitable agents, and adapts its
coordination topology (hierarchical, mesh, hybrid) to the swarm's size
and workload.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
