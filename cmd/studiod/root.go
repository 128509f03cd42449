package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studiod",
		Short:         "Short-form video production daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation behaves like serve.
			return runServe()
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newCompileCommand())
	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the studio daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}
