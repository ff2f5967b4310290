package ports

import "nymctl/internal/core"

// HostStore covers the files on the host the installer reads or writes
type HostStore interface {
	// InstallationExists reports whether a previous install left its marker directory or binary behind
	InstallationExists(cfg *core.NodeConfig) bool

	// WriteDescription writes the description file of the node, empty fields included
	WriteDescription(cfg *core.NodeConfig, desc core.Description) (string, error)

	// ReadMnemonic reads the recovery phrase generated by the node binary
	ReadMnemonic(cfg *core.NodeConfig) (string, error)
}
