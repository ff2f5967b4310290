package system

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"nymctl/internal/ports"
)

// AptPackageManager drives apt-get and dpkg-query
type AptPackageManager struct {
	exec ports.CommandExecutor
	log  *logrus.Entry
}

func NewAptPackageManager(exec ports.CommandExecutor, log *logrus.Entry) *AptPackageManager {
	return &AptPackageManager{exec: exec, log: log}
}

var _ ports.PackageManager = (*AptPackageManager)(nil)

// UpdateSystem refreshes the package lists and upgrades everything, output is shown live
func (p *AptPackageManager) UpdateSystem(ctx context.Context) error {
	if _, err := p.exec.Execute(ctx, ports.Command{
		Argv:     []string{"apt-get", "update"},
		Elevated: true,
		Mode:     ports.Streamed,
		Reason:   "Update package repository",
	}); err != nil {
		return fmt.Errorf("unable to update package lists: %w", err)
	}
	if _, err := p.exec.Execute(ctx, ports.Command{
		Argv:     []string{"apt-get", "upgrade", "-y"},
		Elevated: true,
		Mode:     ports.Streamed,
		Reason:   "Upgrade system packages",
	}); err != nil {
		return fmt.Errorf("unable to upgrade packages: %w", err)
	}
	return nil
}

// EnsurePackages installs whatever is missing from packages
func (p *AptPackageManager) EnsurePackages(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	installed := p.installed(ctx)

	var missing []string
	for _, pkg := range packages {
		if !installed[pkg] {
			missing = append(missing, pkg)
		}
	}
	if len(missing) == 0 {
		p.log.WithField("packages", strings.Join(packages, ",")).Info("packages already installed")
		return nil
	}

	argv := append([]string{"apt-get", "install", "-y"}, missing...)
	if _, err := p.exec.Execute(ctx, ports.Command{
		Argv:     argv,
		Elevated: true,
		Mode:     ports.AnimatedQuiet,
		Reason:   "Install: " + strings.Join(missing, ", "),
		Label:    "Installing " + strings.Join(missing, ", "),
	}); err != nil {
		return fmt.Errorf("unable to install %s: %w", strings.Join(missing, ", "), err)
	}
	p.log.WithField("packages", strings.Join(missing, ",")).Info("packages installed")
	return nil
}

// installed lists packages known to dpkg. When dpkg-query fails everything counts as missing
func (p *AptPackageManager) installed(ctx context.Context) map[string]bool {
	set := map[string]bool{}
	res, err := p.exec.Execute(ctx, ports.Command{Argv: []string{"dpkg-query", "-W", "-f=${Package}\n"}})
	if err != nil {
		p.log.WithError(err).Debug("dpkg-query failed")
		return set
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			set[line] = true
		}
	}
	return set
}
