// Package main provides the catalogdb binary, which applies, audits and
// repairs the product-catalog schema.
package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/p4market/catalogdb/internal/errors"
)

var version = "dev"

// rootOptions holds the global flags
type rootOptions struct {
	configDir string
	output    string
	dir       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "catalogdb",
		Short: "Schema migrations for the product-catalog database",
		Long: `catalogdb applies the versioned catalog schema migrations, detects
migrations whose source changed after they were applied, repairs the
recorded checksums and verifies the live schema.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := parseOutputFormat(opts.output)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config", ".", "Directory holding config.yaml and .env")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "Load migration SQL files from this directory instead of the embedded set")

	rootCmd.AddCommand(newUpCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newRepairCmd(opts))
	rootCmd.AddCommand(newForgetCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))

	return rootCmd
}

// exitCode maps an invocation error to the process exit status. An
// unreachable or misconfigured database exits with 2.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var connErr *apperrors.ConnectionError
	if stderrors.As(err, &connErr) {
		return 2
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}
