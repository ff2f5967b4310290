/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"nymctl/internal/adapters/system"
	"nymctl/internal/config"
	"nymctl/internal/logging"
	"nymctl/internal/service"
)

var noUpdateFlag bool // skip apt-get update/upgrade

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install, initialize and bond a new Nym node",
	Long: `Runs the interactive installation: system update, dependencies, binary download,
mode selection, firewall, node initialization, description, systemd service, mnemonic
backup, wallet funding and contract signing. Run it with sudo.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	//  let's add the flags for the install command
	installCmd.Flags().BoolVar(&noUpdateFlag, "no-update", false, "skip the system package update")
}

func runInstall(cmd *cobra.Command, args []string) error {
	host := newHostAdapters()
	log := logging.Component(logger, "installer")

	funding := service.NewFundingMonitor(host.balances, host.console, conf.MinBalance, conf.PollInterval,
		logging.Component(logger, "funding"))

	installer := service.NewInstaller(service.InstallerDeps{
		Console:  host.console,
		Packages: host.packages,
		Network:  host.network,
		Store:    host.store,
		Services: host.services,
		Binaries: host.binaries,
		Releases: host.releases,
		Tool:     host.tool,
		Funding:  funding,
	}, service.InstallOptions{
		SkipSystemUpdate: noUpdateFlag,
		BinaryPath:       conf.BinaryPath,
		ServiceName:      conf.ServiceName,
		AssetName:        system.BinaryName,
		DownloadDir:      service.DefaultDownloadDir(),
		Packages:         config.DefaultPackages,
		Ports:            conf.Ports,
		WireGuardPorts:   config.WireGuardPorts,
	}, log)

	// let's launch the state machine, it asks everything it needs on the terminal
	report, err := installer.Run(cmd.Context())
	if err != nil {
		return err
	}
	if report.Outcome == service.OutcomeCancelled {
		log.WithField("state", report.Reached).Info("installation cancelled")
	}
	return nil
}
