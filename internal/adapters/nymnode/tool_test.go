package nymnode

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

type scriptedExecutor struct {
	calls  []ports.Command
	output string
	err    error
}

func (s *scriptedExecutor) Execute(ctx context.Context, cmd ports.Command) (ports.ExecResult, error) {
	s.calls = append(s.calls, cmd)
	return ports.ExecResult{Output: s.output}, s.err
}

func newTestTool(exec ports.CommandExecutor) *Tool {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewTool(exec, logrus.NewEntry(logger))
}

func testConfig() *core.NodeConfig {
	return &core.NodeConfig{
		NodeID:     "atlas",
		PublicIP:   "203.0.113.7",
		BinaryPath: "/usr/local/bin/nym-node",
		Mode:       core.ModeExitGateway,
		User:       "operator",
		HomeDir:    "/home/operator",
	}
}

func TestInitializePassesIdentifierAndTerms(t *testing.T) {
	exec := &scriptedExecutor{}
	cfg := testConfig()
	cfg.WireGuardEnabled = true

	require.NoError(t, newTestTool(exec).Initialize(context.Background(), cfg))
	require.Len(t, exec.calls, 1)
	assert.Equal(t, []string{
		"/usr/local/bin/nym-node", "run", "--mode", "exit-gateway", "--id", "atlas",
		"--init-only", "--public-ips", "203.0.113.7",
		"--accept-operator-terms-and-conditions", "--wireguard-enabled", "true",
	}, exec.calls[0].Argv)
}

func TestInitializeFailureCarriesOutput(t *testing.T) {
	exec := &scriptedExecutor{output: "id already exists", err: &core.CommandFailedError{Code: 1}}

	err := newTestTool(exec).Initialize(context.Background(), testConfig())
	var toolErr *core.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "id already exists", toolErr.Output)
	var failed *core.CommandFailedError
	assert.ErrorAs(t, err, &failed)
}

func TestBondingInfoFallsBackToPublicIP(t *testing.T) {
	exec := &scriptedExecutor{output: "Identity Key: 7mZf1abc\n"}

	info, err := newTestTool(exec).BondingInfo(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "7mZf1abc", info.IdentityKey)
	assert.Equal(t, "203.0.113.7", info.Host)
	assert.Equal(t, []string{"/usr/local/bin/nym-node", "bonding-information", "--id", "atlas"}, exec.calls[0].Argv)
}

func TestSignRejectsShortPayload(t *testing.T) {
	exec := &scriptedExecutor{}

	_, err := newTestTool(exec).Sign(context.Background(), testConfig(), "short")
	assert.ErrorIs(t, err, core.ErrPayloadTooShort)
	assert.Empty(t, exec.calls)
}

func TestSignUnrecognisedOutputKeepsRaw(t *testing.T) {
	exec := &scriptedExecutor{output: "unexpected text\nok"}

	res, err := newTestTool(exec).Sign(context.Background(), testConfig(), "payload-from-wallet")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Signature)
	assert.Equal(t, "unexpected text\nok", res.Raw)
	assert.Equal(t, []string{"/usr/local/bin/nym-node", "sign", "--id", "atlas", "--contract-msg", "payload-from-wallet"}, exec.calls[0].Argv)
}

func TestReadVersionWithoutLabel(t *testing.T) {
	exec := &scriptedExecutor{output: "nym-node\n"}

	_, err := newTestTool(exec).ReadVersion(context.Background(), "/tmp/nym-node")
	assert.ErrorIs(t, err, core.ErrVersionNotFound)
}

func TestNodeStateCommandsRunAsOperator(t *testing.T) {
	exec := &scriptedExecutor{output: "Identity Key: 7mZf1abc\nthe signature is:\nsig"}
	tool := newTestTool(exec)
	cfg := testConfig()

	require.NoError(t, tool.Initialize(context.Background(), cfg))
	_, err := tool.BondingInfo(context.Background(), cfg)
	require.NoError(t, err)
	_, err = tool.Sign(context.Background(), cfg, "payload-from-wallet")
	require.NoError(t, err)
	_, _ = tool.ReadVersion(context.Background(), cfg.BinaryPath)

	require.Len(t, exec.calls, 4)
	for _, c := range exec.calls[:3] {
		assert.Equal(t, "operator", c.RunAs, c.Argv[1])
		assert.False(t, c.Elevated)
	}
	assert.Empty(t, exec.calls[3].RunAs)
}
