package main

import "github.com/spf13/cobra"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "gradectl",
	Short: "Administrative commands for the grading pipeline database",
}

func init() {
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(importCmd)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Accepted but not read; configuration comes from config.yaml in ., ./config or /etc/grading-pipeline and GRADEPIPE_* environment variables")
}
