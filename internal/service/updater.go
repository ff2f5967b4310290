package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

// UpdateOutcome is how an update run ended when it did not fail
type UpdateOutcome int

const (
	UpToDate UpdateOutcome = iota
	Updated
	UpdateDeclined
	CandidateOlder
)

func (o UpdateOutcome) String() string {
	switch o {
	case UpToDate:
		return "up to date"
	case Updated:
		return "updated"
	case UpdateDeclined:
		return "declined"
	case CandidateOlder:
		return "candidate older"
	}
	return "unknown"
}

// UpdateReport is what one update run found and did
type UpdateReport struct {
	Installed  core.VersionRecord
	Candidate  core.VersionRecord
	Tag        string
	Outcome    UpdateOutcome
	Backup     string
	Restarted  bool
	RestartErr error
}

type UpdaterOptions struct {
	AssumeYes   bool
	AssetName   string
	ServiceName string
	DownloadDir string
}

// Updater replaces the installed node binary with the latest published one
type Updater struct {
	console  ports.Console
	binaries ports.BinaryStore
	releases ports.ReleaseIndex
	tool     ports.NodeTool
	services ports.ServiceManager
	log      *logrus.Entry
	opts     UpdaterOptions
}

func NewUpdater(console ports.Console, binaries ports.BinaryStore, releases ports.ReleaseIndex, tool ports.NodeTool, services ports.ServiceManager, opts UpdaterOptions, log *logrus.Entry) *Updater {
	return &Updater{
		console:  console,
		binaries: binaries,
		releases: releases,
		tool:     tool,
		services: services,
		log:      log,
		opts:     opts,
	}
}

// CompareVersions orders two build versions as plain strings.
// TODO: switch to semantic version ordering, "1.10.0" sorts before "1.9.0" here
func CompareVersions(a, b string) int {
	return strings.Compare(a, b)
}

// Run performs one update. Any failure before the swap leaves the installed binary untouched.
// The restart is optional. A failed restart after the swap is reported in the report and does not revert the swap
func (u *Updater) Run(ctx context.Context) (UpdateReport, error) {
	var report UpdateReport

	u.console.Section("Nym Node Updater")

	live, err := u.binaries.Locate()
	if err != nil {
		u.console.Error("Installed nym-node not found")
		return report, err
	}
	installed, err := u.tool.ReadVersion(ctx, live)
	if err != nil {
		u.console.Error("Could not read the installed version")
		return report, fmt.Errorf("installed binary %s: %w", live, err)
	}
	report.Installed = core.VersionRecord{Version: installed, Path: live}
	u.console.Info(fmt.Sprintf("Installed: %s (%s)", installed, live))

	rel, err := u.releases.Latest(ctx, u.opts.AssetName, true)
	if err != nil {
		u.console.Error(err.Error())
		return report, err
	}
	report.Tag = rel.Tag

	candidate := filepath.Join(u.opts.DownloadDir, rel.AssetName)
	if err := os.RemoveAll(candidate); err != nil {
		return report, fmt.Errorf("unable to clear %s: %w", candidate, err)
	}
	if err := os.MkdirAll(u.opts.DownloadDir, 0o755); err != nil {
		return report, fmt.Errorf("unable to create %s: %w", u.opts.DownloadDir, err)
	}
	if err := u.releases.Download(ctx, rel, candidate); err != nil {
		u.console.Error(err.Error())
		return report, err
	}

	latest, err := u.tool.ReadVersion(ctx, candidate)
	if err != nil {
		u.console.Error("Could not read the downloaded version")
		return report, fmt.Errorf("candidate binary %s: %w", candidate, err)
	}
	report.Candidate = core.VersionRecord{Version: latest, Path: candidate}
	u.console.Info(fmt.Sprintf("Latest:    %s (%s)", latest, rel.Tag))

	log := u.log.WithFields(logrus.Fields{"installed": installed, "candidate": latest})
	switch c := CompareVersions(latest, installed); {
	case c == 0:
		report.Outcome = UpToDate
		u.console.Success("Already up to date")
		log.Info("nothing to update")
		return report, nil
	case c < 0:
		report.Outcome = CandidateOlder
		u.console.Warn("Downloaded version is older than the installed one, leaving it in place")
		log.Warn("candidate older than installed binary")
		return report, nil
	}

	if !u.opts.AssumeYes {
		ok, err := u.console.Confirm(fmt.Sprintf("Update %s -> %s? (y/N):", installed, latest))
		if err != nil {
			return report, err
		}
		if !ok {
			report.Outcome = UpdateDeclined
			u.console.Info("Update cancelled")
			return report, nil
		}
	}

	backup, err := u.binaries.Replace(ctx, candidate, live)
	if err != nil {
		u.console.Error("Replacing the binary failed: " + err.Error())
		return report, err
	}
	report.Backup = backup
	report.Outcome = Updated
	u.console.Success("Binary updated, backup at " + backup)
	log.WithField("backup", backup).Info("binary replaced")

	if !u.opts.AssumeYes {
		ok, err := u.console.Confirm(fmt.Sprintf("Restart %s? (y/N):", u.opts.ServiceName))
		if err != nil {
			return report, err
		}
		if !ok {
			u.console.Info("Service restart skipped")
			return report, nil
		}
	}
	if err := u.services.Restart(ctx, u.opts.ServiceName); err != nil {
		report.RestartErr = err
		u.console.Warn(fmt.Sprintf("Restart failed, run: sudo systemctl restart %s", u.opts.ServiceName))
		log.WithError(err).Warn("service restart failed")
		return report, nil
	}
	report.Restarted = true
	u.console.Success("Service restarted")
	return report, nil
}
