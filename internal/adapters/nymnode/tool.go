package nymnode

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

const (
	BondingInfoTimeout = 30 * time.Second
	VersionTimeout     = 15 * time.Second

	// the node binary refuses to init or run without this
	acceptTermsFlag = "--accept-operator-terms-and-conditions"
)

// Tool drives the nym-node binary found at the path stored in the node config.
// Every subcommand that reads or writes node state runs as cfg.User, so keys end up in the same
// home the service later runs from
type Tool struct {
	exec ports.CommandExecutor
	log  *logrus.Entry
}

func NewTool(exec ports.CommandExecutor, log *logrus.Entry) *Tool {
	return &Tool{exec: exec, log: log}
}

var _ ports.NodeTool = (*Tool)(nil)

// RunArgs is the argv of the long running node, shared by init and the service unit
func RunArgs(binaryPath, nodeID string, mode core.NodeMode, wireguard bool, extra ...string) []string {
	argv := []string{binaryPath, "run", "--mode", string(mode), "--id", nodeID}
	argv = append(argv, extra...)
	argv = append(argv, acceptTermsFlag)
	if wireguard {
		argv = append(argv, "--wireguard-enabled", "true")
	}
	return argv
}

// Initialize runs the non interactive init of the node
func (t *Tool) Initialize(ctx context.Context, cfg *core.NodeConfig) error {
	argv := RunArgs(cfg.BinaryPath, cfg.NodeID, cfg.Mode, cfg.WireGuard(), "--init-only", "--public-ips", cfg.PublicIP)
	res, err := t.exec.Execute(ctx, ports.Command{Argv: argv, Label: "Initializing node", RunAs: cfg.User})
	if err != nil {
		return &core.ToolError{Subcommand: "run --init-only", Output: res.Output, Err: err}
	}
	t.log.WithFields(logrus.Fields{"id": cfg.NodeID, "mode": cfg.Mode}).Info("node initialized")
	return nil
}

// BondingInfo asks the installed node for the data the wallet needs.
// Host falls back to the configured public address when the tool does not print one
func (t *Tool) BondingInfo(ctx context.Context, cfg *core.NodeConfig) (core.BondingInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, BondingInfoTimeout)
	defer cancel()

	res, err := t.exec.Execute(ctx, ports.Command{
		Argv:  []string{cfg.BinaryPath, "bonding-information", "--id", cfg.NodeID},
		RunAs: cfg.User,
	})
	if err != nil {
		return core.BondingInfo{}, &core.ToolError{Subcommand: "bonding-information", Output: res.Output, Err: err}
	}

	info, found := ParseBondingInfo(res.Output)
	if !found {
		t.log.WithField("output", res.Output).Warn("no labelled fields in bonding information")
	}
	if info.Host == "" {
		info.Host = cfg.PublicIP
	}
	return info, nil
}

// Sign signs the wallet payload. Not finding the signature is not an error, the raw
// output is returned for the operator to read
func (t *Tool) Sign(ctx context.Context, cfg *core.NodeConfig, payload string) (ports.SignResult, error) {
	if len(payload) < core.MinPayloadLength {
		return ports.SignResult{}, core.ErrPayloadTooShort
	}
	res, err := t.exec.Execute(ctx, ports.Command{
		Argv:  []string{cfg.BinaryPath, "sign", "--id", cfg.NodeID, "--contract-msg", payload},
		Label: "Signing contract",
		RunAs: cfg.User,
	})
	if err != nil {
		return ports.SignResult{Raw: res.Output}, &core.ToolError{Subcommand: "sign", Output: res.Output, Err: err}
	}
	sig, found := ExtractSignature(res.Output)
	if !found {
		t.log.Warn("signature not recognised in sign output")
	}
	return ports.SignResult{Signature: sig, Found: found, Raw: res.Output}, nil
}

// ReadVersion returns the build version reported by the binary at binaryPath
func (t *Tool) ReadVersion(ctx context.Context, binaryPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, VersionTimeout)
	defer cancel()

	res, err := t.exec.Execute(ctx, ports.Command{Argv: []string{binaryPath, "--version"}})
	if err != nil {
		return "", &core.ToolError{Subcommand: "--version", Output: res.Output, Err: err}
	}
	version, ok := ParseBuildVersion(res.Output)
	if !ok {
		return "", fmt.Errorf("%s: %w", binaryPath, core.ErrVersionNotFound)
	}
	t.log.WithFields(logrus.Fields{"binary": binaryPath, "version": version}).Debug("read build version")
	return version, nil
}
