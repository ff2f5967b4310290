package core

import (
	"fmt"
	"path/filepath"
)

// This is where the node we provision is defined

// NodeMode is the operating mode handed to the node binary with --mode
type NodeMode string

const (
	ModeMixnode     NodeMode = "mixnode"
	ModeExitGateway NodeMode = "exit-gateway"
)

// MinNodeIDLength is the shortest moniker the installer accepts
const MinNodeIDLength = 3

// NodeConfig holds everything one installation run learns about the node.
// It is owned by a single run and handed by pointer from step to step.
type NodeConfig struct {
	NodeID           string   // the moniker, every path and tool call of the run is keyed on it
	PublicIP         string   // detected or typed in by the operator
	BinaryPath       string   // where the nym-node binary really lives
	Mode             NodeMode // mixnode or exit-gateway
	WireGuardEnabled bool     // only honoured in exit-gateway mode
	Mnemonic         string   // generated by the node binary, we only ever read it
	User             string   // operator account the node binary and the service run as
	HomeDir          string   // home of that account, the node keeps everything under it
}

// SetNodeID accepts the moniker once. A second call with a different value is refused
func (c *NodeConfig) SetNodeID(id string) error {
	if len(id) < MinNodeIDLength {
		return fmt.Errorf("node id %q: %w", id, ErrNodeIDTooShort)
	}
	if c.NodeID != "" && c.NodeID != id {
		return fmt.Errorf("node id already set to %q: %w", c.NodeID, ErrNodeIDImmutable)
	}
	c.NodeID = id
	return nil
}

// SetMnemonic stores the recovery phrase the first time it is read
func (c *NodeConfig) SetMnemonic(m string) {
	if c.Mnemonic == "" {
		c.Mnemonic = m
	}
}

// WireGuard reports whether the wireguard flag must be passed to the node binary
func (c *NodeConfig) WireGuard() bool {
	return c.Mode == ModeExitGateway && c.WireGuardEnabled
}

// ModeDescription is the human readable mode, e.g. "exit-gateway + WireGuard"
func (c *NodeConfig) ModeDescription() string {
	if c.WireGuard() {
		return string(c.Mode) + " + WireGuard"
	}
	return string(c.Mode)
}

// MarkerDir is the directory whose presence tells us a node was set up before
func (c *NodeConfig) MarkerDir() string {
	return filepath.Join(c.HomeDir, ".nym")
}

// ConfigDir is ~/.nym/nym-nodes/<id>
func (c *NodeConfig) ConfigDir() string {
	return filepath.Join(c.MarkerDir(), "nym-nodes", c.NodeID)
}

// DataDir is where the node binary keeps its keys and the mnemonic
func (c *NodeConfig) DataDir() string {
	return filepath.Join(c.ConfigDir(), "data")
}

func (c *NodeConfig) DescriptionPath() string {
	return filepath.Join(c.DataDir(), "description.toml")
}

func (c *NodeConfig) MnemonicPath() string {
	return filepath.Join(c.DataDir(), "cosmos_mnemonic")
}

// BondingInfo is what the operator pastes into the wallet. It is recomputed every time
type BondingInfo struct {
	IdentityKey string
	Host        string
}

// Description is the optional metadata published with the node
type Description struct {
	Moniker         string `toml:"moniker"`
	Website         string `toml:"website"`
	SecurityContact string `toml:"security_contact"`
	Details         string `toml:"details"`
}

// InstallationStep is one entry of the fixed install sequence
type InstallationStep struct {
	Name    string
	Enabled bool
}

// VersionRecord pairs a build version with the binary it was read from
type VersionRecord struct {
	Version string
	Path    string
}

// ServiceSpec is what the supervisor needs to know to keep the node running
type ServiceSpec struct {
	Name       string
	NodeID     string
	BinaryPath string
	Mode       NodeMode
	WireGuard  bool
	User       string
	HomeDir    string
}

// Release is the newest published release and the asset we picked from it
type Release struct {
	Tag         string
	AssetName   string
	DownloadURL string
	Size        int64 // bytes, zero when the index does not say
}
