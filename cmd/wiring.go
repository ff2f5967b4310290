/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"path/filepath"

	"nymctl/internal/adapters/console"
	execadapter "nymctl/internal/adapters/exec"
	"nymctl/internal/adapters/network"
	"nymctl/internal/adapters/nymnode"
	"nymctl/internal/adapters/release"
	"nymctl/internal/adapters/system"
	"nymctl/internal/adapters/wallet"
	"nymctl/internal/logging"
)

// hostAdapters are the real implementations of every port, built once per command
type hostAdapters struct {
	console  *console.Terminal
	packages *system.AptPackageManager
	network  *network.HostNetworkManager
	store    *system.HostFS
	services *system.SystemdManager
	binaries *system.BinaryStore
	releases *release.GitHubReleases
	tool     *nymnode.Tool
	balances *wallet.Client
}

func newHostAdapters() *hostAdapters {
	executor := execadapter.NewExecutor(os.Stdout, logging.Component(logger, "exec"))
	packages := system.NewAptPackageManager(executor, logging.Component(logger, "apt"))
	services := system.NewSystemdManager(executor, system.DefaultUnitDir, logging.Component(logger, "systemd"))

	return &hostAdapters{
		console:  console.NewTerminal(os.Stdin, os.Stdout),
		packages: packages,
		network:  network.NewHostNetworkManager(executor, packages, conf.IPServices, logging.Component(logger, "network")),
		store:    system.NewHostFS(logging.Component(logger, "hostfs")),
		services: services,
		binaries: system.NewBinaryStore(executor, conf.BinaryPath, fallbackBinaryPath(services), logging.Component(logger, "binary")),
		releases: release.NewGitHubReleases(conf.ReleaseAPI, os.Stdout, logging.Component(logger, "release")),
		tool:     nymnode.NewTool(executor, logging.Component(logger, "nym-node")),
		balances: wallet.NewClient(conf.BalanceAPI, logging.Component(logger, "wallet")),
	}
}

// fallbackBinaryPath is ~/.nym/bin/nym-node of the invoking user
func fallbackBinaryPath(services *system.SystemdManager) string {
	_, home, err := services.InvokingUser()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".nym", "bin", system.BinaryName)
}
