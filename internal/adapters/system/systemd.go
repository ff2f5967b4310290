package system

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/sirupsen/logrus"

	"nymctl/internal/adapters/nymnode"
	"nymctl/internal/core"
	"nymctl/internal/ports"
)

const (
	DefaultUnitDir     = "/etc/systemd/system"
	DefaultServiceName = "nym-node.service"
	restartBackoff     = "10"
	openFilesLimit     = "65535"
)

// SystemdManager writes the node unit and drives systemctl
type SystemdManager struct {
	exec    ports.CommandExecutor
	log     *logrus.Entry
	unitDir string

	lookupUser func() (string, string, error)
}

func NewSystemdManager(exec ports.CommandExecutor, unitDir string, log *logrus.Entry) *SystemdManager {
	if unitDir == "" {
		unitDir = DefaultUnitDir
	}
	return &SystemdManager{exec: exec, log: log, unitDir: unitDir, lookupUser: lookupInvokingUser}
}

var _ ports.ServiceManager = (*SystemdManager)(nil)

// InvokingUser is the non elevated user nymctl runs for
func (m *SystemdManager) InvokingUser() (string, string, error) {
	return m.lookupUser()
}

// RenderUnit builds the unit file of the node. The binary path is taken verbatim from spec
func RenderUnit(spec core.ServiceSpec) (string, error) {
	if spec.BinaryPath == "" || spec.NodeID == "" || spec.User == "" {
		return "", fmt.Errorf("incomplete service spec: %w", core.ErrPreconditionUnmet)
	}
	execStart := nymnode.RunArgs(spec.BinaryPath, spec.NodeID, spec.Mode, spec.WireGuard, "--deny-init")

	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", fmt.Sprintf("Nym Node (%s) - %s", spec.NodeID, spec.Mode)),
		unit.NewUnitOption("Unit", "After", "network.target"),
		unit.NewUnitOption("Unit", "Wants", "network.target"),

		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "User", spec.User),
		unit.NewUnitOption("Service", "WorkingDirectory", spec.HomeDir),
		unit.NewUnitOption("Service", "ExecStart", strings.Join(execStart, " ")),
		unit.NewUnitOption("Service", "Restart", "always"),
		unit.NewUnitOption("Service", "RestartSec", restartBackoff),
		unit.NewUnitOption("Service", "LimitNOFILE", openFilesLimit),
		unit.NewUnitOption("Service", "NoNewPrivileges", "true"),
		unit.NewUnitOption("Service", "PrivateTmp", "true"),
		unit.NewUnitOption("Service", "ProtectSystem", "strict"),
		unit.NewUnitOption("Service", "ProtectHome", "false"),
		unit.NewUnitOption("Service", "ReadWritePaths", filepath.Join(spec.HomeDir, ".nym")),

		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}
	b, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return "", fmt.Errorf("unable to serialize unit: %w", err)
	}
	return string(b), nil
}

// Install writes the unit, then reloads, enables and starts it. The first failing step stops the rest
func (m *SystemdManager) Install(ctx context.Context, spec core.ServiceSpec) error {
	content, err := RenderUnit(spec)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "nym-node-*.service")
	if err != nil {
		return fmt.Errorf("unable to create temporary unit file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write temporary unit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write temporary unit file: %w", err)
	}

	unitPath := filepath.Join(m.unitDir, spec.Name)
	steps := []ports.Command{
		{Argv: []string{"install", "-m", "644", tmp.Name(), unitPath}, Reason: "Install service unit " + unitPath},
		{Argv: []string{"systemctl", "daemon-reload"}, Reason: "Reload systemd"},
		{Argv: []string{"systemctl", "enable", spec.Name}, Reason: "Enable " + spec.Name + " at boot"},
		{Argv: []string{"systemctl", "start", spec.Name}, Reason: "Start " + spec.Name, Mode: ports.AnimatedQuiet, Label: "Starting " + spec.Name},
	}
	for _, step := range steps {
		step.Elevated = true
		if _, err := m.exec.Execute(ctx, step); err != nil {
			return fmt.Errorf("service setup failed at %q: %w", strings.Join(step.Argv, " "), err)
		}
	}
	m.log.WithFields(logrus.Fields{"unit": unitPath, "user": spec.User}).Info("service installed and started")
	return nil
}

// Restart restarts the unit name
func (m *SystemdManager) Restart(ctx context.Context, name string) error {
	if _, err := m.exec.Execute(ctx, ports.Command{
		Argv:     []string{"systemctl", "restart", name},
		Elevated: true,
		Reason:   "Restart " + name,
	}); err != nil {
		return fmt.Errorf("unable to restart %s: %w", name, err)
	}
	return nil
}
