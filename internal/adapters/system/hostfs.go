package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/user"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

// HostFS reads and writes the node files under the operator home
type HostFS struct {
	log *logrus.Entry

	euid   func() int
	lookup func(string) (user.User, error)
	chown  func(path string, uid, gid int) error
}

func NewHostFS(log *logrus.Entry) *HostFS {
	return &HostFS{log: log, euid: unix.Geteuid, lookup: user.LookupUser, chown: os.Lchown}
}

var _ ports.HostStore = (*HostFS)(nil)

// InstallationExists looks for ~/.nym or a binary at the configured path
func (h *HostFS) InstallationExists(cfg *core.NodeConfig) bool {
	for _, p := range []string{cfg.MarkerDir(), cfg.BinaryPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			h.log.WithField("path", p).Debug("previous installation found")
			return true
		}
	}
	return false
}

// WriteDescription writes description.toml. Empty fields are kept as empty strings
func (h *HostFS) WriteDescription(cfg *core.NodeConfig, desc core.Description) (string, error) {
	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return "", fmt.Errorf("unable to create %s: %w", cfg.DataDir(), err)
	}
	desc.Moniker = cfg.NodeID
	content, err := toml.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("unable to encode description: %w", err)
	}
	path := cfg.DescriptionPath()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("unable to write %s: %w", path, err)
	}
	if err := h.giveToOperator(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}

// giveToOperator hands path and the node directories above it back to cfg.User when we
// write them as root, the service runs as that user and must own its own files
func (h *HostFS) giveToOperator(cfg *core.NodeConfig, path string) error {
	if h.euid() != 0 || cfg.User == "" || cfg.User == "root" {
		return nil
	}
	u, err := h.lookup(cfg.User)
	if err != nil {
		return fmt.Errorf("unable to look up %s: %w", cfg.User, err)
	}
	paths := []string{cfg.MarkerDir(), filepath.Dir(cfg.ConfigDir()), cfg.ConfigDir(), cfg.DataDir(), path}
	for _, p := range paths {
		if err := h.chown(p, u.Uid, u.Gid); err != nil {
			return fmt.Errorf("unable to hand %s to %s: %w", p, cfg.User, err)
		}
	}
	return nil
}

// ReadMnemonic returns the phrase the node binary generated during init
func (h *HostFS) ReadMnemonic(cfg *core.NodeConfig) (string, error) {
	b, err := os.ReadFile(cfg.MnemonicPath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("mnemonic file %s: %w", cfg.MnemonicPath(), core.ErrPreconditionUnmet)
	}
	if err != nil {
		return "", fmt.Errorf("unable to read mnemonic: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
