// Command contractd runs the contract VM host: a content-addressed
// bytecode store, a Wasmer-backed Runtime, and the HTTP gateway described
// in spec.md §6.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"contractvm/internal/errutil"
)

var logger = logrus.StandardLogger()

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "contractd",
		Short: "Content-addressed contract VM host",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			lvl, err := logrus.ParseLevel(errutil.EnvOrDefault("LOG_LEVEL", "info"))
			if err != nil {
				return err
			}
			logger.SetLevel(lvl)
			logger.SetFormatter(&logrus.JSONFormatter{})
			return nil
		},
	}
	root.AddCommand(serveCmd(), storeCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the contractd version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "contractd v0.1.0")
			return nil
		},
	}
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		logger.WithError(err).Error("contractd exited with error")
		os.Exit(1)
	}
}
