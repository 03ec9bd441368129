package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "onboarding",
		Short:         "SMS sender onboarding backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(refreshCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
