/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nymctl/internal/adapters/system"
	"nymctl/internal/config"
	"nymctl/internal/logging"
	"nymctl/internal/version"
)

var (
	conf   *config.Config // resolved before any subcommand runs
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nymctl",
	Short: "Install, bond and update a Nym node",
	Long: `nymctl provisions a Nym node on a Debian/Ubuntu host: it installs the nym-node
binary, opens the firewall, initializes the node, sets up the systemd service and walks the
operator through wallet funding and contract signing. It also keeps the binary up to date.`,
	Version:           version.Build,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config-dir", config.DefaultConfigDir(), "directory holding nymctl.toml and .env")
	flags.String("log-level", config.DefaultLogLevel, "debug, info, warn, error, fatal or panic")
	flags.String("log-file", "", "also write logs to this file")
	flags.String("binary-path", system.DefaultBinaryPath, "where the nym-node binary is installed")

	// let's register the subcommands
	rootCmd.AddCommand(installCmd, updateCmd, nodeCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	conf, err = config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}
	logger, err = logging.New(conf.LogLevel, conf.LogFile, os.Stderr)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	logging.Component(logger, "config").WithFields(logrus.Fields{
		"config_dir":   conf.ConfigDir,
		"binary_path":  conf.BinaryPath,
		"service_name": conf.ServiceName,
		"release_api":  conf.ReleaseAPI,
		"balance_api":  conf.BalanceAPI,
		"min_balance":  conf.MinBalance,
		"ports":        conf.Ports,
	}).Debug("configuration loaded")
	return nil
}

// Execute runs the command tree. A clean cancellation by the operator exits 0,
// every unrecovered failure exits 1
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	code := exitCode(err)
	if code != 0 {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	// os.Exit skips the deferred stop, so release the signal handler here
	stop()
	os.Exit(code)
}
