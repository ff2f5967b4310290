package system

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

const (
	BinaryName        = "nym-node"
	DefaultBinaryPath = "/usr/local/bin/nym-node"
	backupSuffix      = ".backup"
)

// BinaryStore moves node binaries into place with elevated cp/mv/chmod
type BinaryStore struct {
	exec     ports.CommandExecutor
	log      *logrus.Entry
	configured string // binary_path of the config, checked before anything else
	fallback   string // checked when the binary is not on PATH

	lookPath func(string) (string, error)
}

func NewBinaryStore(exec ports.CommandExecutor, configured, fallback string, log *logrus.Entry) *BinaryStore {
	return &BinaryStore{exec: exec, log: log, configured: configured, fallback: fallback, lookPath: osexec.LookPath}
}

var _ ports.BinaryStore = (*BinaryStore)(nil)

// BackupPath is the sibling the live binary is copied to before it is overwritten
func BackupPath(live string) string {
	return strings.TrimSuffix(live, filepath.Ext(live)) + backupSuffix
}

// Locate looks at the configured path first, then PATH, then the fallback install location
func (b *BinaryStore) Locate() (string, error) {
	if isExecutable(b.configured) {
		b.log.WithField("path", b.configured).Info("found node binary at configured path")
		return b.configured, nil
	}
	if p, err := b.lookPath(BinaryName); err == nil {
		b.log.WithField("path", p).Info("found node binary in PATH")
		return p, nil
	}
	if isExecutable(b.fallback) {
		b.log.WithField("path", b.fallback).Info("found node binary")
		return b.fallback, nil
	}
	return "", fmt.Errorf("%s binary not found: %w", BinaryName, core.ErrPreconditionUnmet)
}

func isExecutable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}

// Install moves src to dest and makes it executable
func (b *BinaryStore) Install(ctx context.Context, src, dest string) error {
	return b.run(ctx,
		ports.Command{Argv: []string{"mv", src, dest}, Reason: "Install " + BinaryName + " to " + dest},
		ports.Command{Argv: []string{"chmod", "755", dest}, Reason: "Make " + dest + " executable"},
	)
}

// Replace copies live to its backup path, then copies candidate over live and restores the
// executable bit. This is not atomic: an interruption after the backup leaves the old binary
// in place, an interruption during the second copy can leave a truncated live binary that has
// to be restored from the backup by hand.
func (b *BinaryStore) Replace(ctx context.Context, candidate, live string) (string, error) {
	backup := BackupPath(live)
	err := b.run(ctx,
		ports.Command{Argv: []string{"cp", live, backup}, Reason: "Back up " + live},
		ports.Command{Argv: []string{"cp", candidate, live}, Reason: "Replace " + live},
		ports.Command{Argv: []string{"chmod", "755", live}, Reason: "Make " + live + " executable"},
	)
	if err != nil {
		return backup, err
	}
	b.log.WithFields(logrus.Fields{"live": live, "backup": backup}).Info("binary replaced")
	return backup, nil
}

func (b *BinaryStore) run(ctx context.Context, cmds ...ports.Command) error {
	for _, cmd := range cmds {
		cmd.Elevated = true
		if _, err := b.exec.Execute(ctx, cmd); err != nil {
			return fmt.Errorf("%s: %w", strings.Join(cmd.Argv, " "), err)
		}
	}
	return nil
}
