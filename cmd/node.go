/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nymctl/internal/core"
	"nymctl/internal/service"
)

var nodeIDFlag string // moniker the node was initialized with

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect an installed Nym node",
	Long:  `Parent command for the helpers used after installation (bonding information, wallet balance).`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// nodeBondingCmd prints what the wallet needs to bond the node
var nodeBondingCmd = &cobra.Command{
	Use:   "bonding",
	Short: "Show the bonding information of an installed node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := newHostAdapters()
		// the node lives in the home of the operator, even when we run under sudo
		name, home, err := host.services.InvokingUser()
		if err != nil {
			return err
		}
		cfg := &core.NodeConfig{BinaryPath: conf.BinaryPath, User: name, HomeDir: home}
		if err := cfg.SetNodeID(nodeIDFlag); err != nil {
			return err
		}

		info, err := host.tool.BondingInfo(cmd.Context(), cfg)
		if err != nil {
			var toolErr *core.ToolError
			if errors.As(err, &toolErr) && toolErr.Output != "" {
				host.console.Print(toolErr.Output)
			}
			return err
		}
		if info.IdentityKey == "" {
			host.console.Warn("Identity key not found, is the node initialized?")
			return core.ErrToolOutputUnparseable
		}
		host.console.Highlight("BONDING INFORMATION", "")
		host.console.Print("Identity Key: " + info.IdentityKey)
		host.console.Print("Host:         " + info.Host)
		return nil
	},
}

// nodeBalanceCmd checks a wallet once, without waiting for funds
var nodeBalanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show the NYM balance of a wallet address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host := newHostAdapters()
		// a single query, the waiting loop belongs to the installer
		balance, err := host.balances.Balance(cmd.Context(), args[0])

		switch service.ClassifyBalance(balance, err, conf.MinBalance) {
		case service.FundingQueryFailed:
			return fmt.Errorf("balance check failed: %w", err)
		case service.FundingSufficient:
			host.console.Success(fmt.Sprintf("Balance: %.6f NYM, enough to bond", balance))
		case service.FundingInsufficient:
			host.console.Warn(fmt.Sprintf("Balance: %.6f NYM (need %g)", balance, conf.MinBalance))
		case service.FundingZero:
			host.console.Error(fmt.Sprintf("Balance: 0 NYM (need at least %g)", conf.MinBalance))
		}
		return nil
	},
}

func init() {
	// let's add the bonding and balance helpers under node
	nodeCmd.AddCommand(nodeBondingCmd, nodeBalanceCmd)
	// the id is mandatory, the node keeps its keys under ~/.nym/nym-nodes/<id>
	nodeBondingCmd.Flags().StringVar(&nodeIDFlag, "id", "", "node ID (moniker) given at installation")
	nodeBondingCmd.MarkFlagRequired("id")
}
