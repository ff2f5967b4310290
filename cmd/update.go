/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nymctl/internal/adapters/system"
	"nymctl/internal/logging"
	"nymctl/internal/service"
)

var assumeYesFlag bool // answer yes to the update and restart confirmation

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the installed nym-node binary to the latest release",
	Long: `Downloads the latest nym-node release, compares its build version with the installed
binary and replaces it when the release is newer. The old binary is kept next to the new
one with a .backup suffix and the service is restarted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := newHostAdapters()
		updater := service.NewUpdater(host.console, host.binaries, host.releases, host.tool, host.services,
			service.UpdaterOptions{
				AssumeYes:   assumeYesFlag,
				AssetName:   system.BinaryName,
				ServiceName: conf.ServiceName,
				DownloadDir: service.DefaultDownloadDir(),
			}, logging.Component(logger, "updater"))

		// the updater never touches the live binary before the new version is confirmed newer
		report, err := updater.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Installed: %s\n", report.Installed.Version)
		if report.Candidate.Version != "" {
			fmt.Printf("Latest:    %s (%s)\n", report.Candidate.Version, report.Tag)
		}
		fmt.Printf("Result:    %s\n", report.Outcome)
		if report.RestartErr != nil {
			fmt.Printf("Restart:   failed (%v)\n", report.RestartErr)
		}
		return nil
	},
}

func init() {
	//  let's add the flags for the update command
	updateCmd.Flags().BoolVarP(&assumeYesFlag, "yes", "y", false, "do not ask for confirmation")
}
