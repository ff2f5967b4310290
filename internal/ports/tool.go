package ports

import (
	"context"

	"nymctl/internal/core"
)

// SignResult keeps the raw output next to the extracted signature so callers can always show it
type SignResult struct {
	Signature string
	Found     bool
	Raw       string
}

// NodeTool is the typed view of the nym-node binary CLI
type NodeTool interface {
	Initialize(ctx context.Context, cfg *core.NodeConfig) error
	BondingInfo(ctx context.Context, cfg *core.NodeConfig) (core.BondingInfo, error)
	Sign(ctx context.Context, cfg *core.NodeConfig, payload string) (SignResult, error)
	ReadVersion(ctx context.Context, binaryPath string) (string, error)
}
