package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nymctl/internal/core"
)

const livePath = "/usr/local/bin/nym-node"

func newTestUpdater(t *testing.T, h *host, con *scriptedConsole, yes bool) (*Updater, string) {
	dir := t.TempDir()
	u := NewUpdater(con, binaryStore{h}, h, h, h, UpdaterOptions{
		AssumeYes:   yes,
		AssetName:   "nym-node",
		ServiceName: "nym-node.service",
		DownloadDir: dir,
	}, testLogger())
	return u, filepath.Join(dir, "nym-node")
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, CompareVersions("1.2.0", "1.2.0"))
	assert.Equal(t, 1, CompareVersions("1.3.0", "1.2.0"))
	assert.Equal(t, -1, CompareVersions("1.1.9", "1.2.0"))
}

func TestUpdateNewerWithAssumeYes(t *testing.T) {
	h := &host{located: livePath}
	u, candidate := newTestUpdater(t, h, &scriptedConsole{}, true)
	h.versions = map[string]string{livePath: "1.2.0", candidate: "1.3.0"}

	report, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Updated, report.Outcome)
	assert.Equal(t, livePath+".backup", report.Backup)
	assert.True(t, report.Restarted)
	assert.Equal(t, "nym-binaries-v2025.1", report.Tag)

	assert.Equal(t, []string{
		"locate",
		"version " + livePath,
		"latest nym-node true",
		"download " + candidate,
		"version " + candidate,
		"replace " + candidate + " " + livePath,
		"restart nym-node.service",
	}, h.calls)
}

func TestUpdateEqualVersionsIsUpToDate(t *testing.T) {
	h := &host{located: livePath}
	u, candidate := newTestUpdater(t, h, &scriptedConsole{}, false)
	h.versions = map[string]string{livePath: "1.2.0", candidate: "1.2.0"}

	report, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UpToDate, report.Outcome)
	assert.False(t, h.called("replace"))
	assert.False(t, h.called("restart"))
}

func TestUpdateOlderCandidateIsNotInstalled(t *testing.T) {
	h := &host{located: livePath}
	con := &scriptedConsole{}
	u, candidate := newTestUpdater(t, h, con, true)
	h.versions = map[string]string{livePath: "1.3.0", candidate: "1.2.0"}

	report, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CandidateOlder, report.Outcome)
	assert.False(t, h.called("replace"))
	assert.True(t, con.said("older"))
}

func TestUpdateCandidateWithoutVersionStopsBeforeSwap(t *testing.T) {
	h := &host{located: livePath}
	u, _ := newTestUpdater(t, h, &scriptedConsole{}, true)
	h.versions = map[string]string{livePath: "1.2.0"}

	_, err := u.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrVersionNotFound)
	assert.False(t, h.called("replace"))
	assert.False(t, h.called("restart"))
}

func TestUpdateDeclinedByOperator(t *testing.T) {
	h := &host{located: livePath}
	con := &scriptedConsole{answers: []string{"n"}}
	u, candidate := newTestUpdater(t, h, con, false)
	h.versions = map[string]string{livePath: "1.2.0", candidate: "1.3.0"}

	report, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UpdateDeclined, report.Outcome)
	assert.False(t, h.called("replace"))
	require.Len(t, con.prompts, 1)
	assert.Contains(t, con.prompts[0], "1.2.0 -> 1.3.0")
}

func TestUpdateRestartFailureKeepsSwap(t *testing.T) {
	h := &host{located: livePath, restartErr: errors.New("unit not loaded")}
	con := &scriptedConsole{answers: []string{"yes", "yes"}}
	u, candidate := newTestUpdater(t, h, con, false)
	h.versions = map[string]string{livePath: "1.2.0", candidate: "1.3.0"}

	report, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Updated, report.Outcome)
	assert.False(t, report.Restarted)
	assert.Error(t, report.RestartErr)
	assert.True(t, con.said("sudo systemctl restart nym-node.service"))
}

func TestUpdateMissingBinary(t *testing.T) {
	h := &host{locateErr: core.ErrPreconditionUnmet}
	u, _ := newTestUpdater(t, h, &scriptedConsole{}, true)

	_, err := u.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrPreconditionUnmet)
	assert.Equal(t, []string{"locate"}, h.calls)
}

func TestUpdateReplaceFailure(t *testing.T) {
	h := &host{located: livePath, replaceErr: errors.New("backup failed")}
	u, candidate := newTestUpdater(t, h, &scriptedConsole{}, true)
	h.versions = map[string]string{livePath: "1.2.0", candidate: "1.3.0"}

	_, err := u.Run(context.Background())
	assert.Error(t, err)
	assert.False(t, h.called("restart"))
}

func TestUpdateRestartSkipped(t *testing.T) {
	h := &host{located: livePath}
	con := &scriptedConsole{answers: []string{"y", "n"}}
	u, candidate := newTestUpdater(t, h, con, false)
	h.versions = map[string]string{livePath: "1.2.0", candidate: "1.3.0"}

	report, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Updated, report.Outcome)
	assert.False(t, report.Restarted)
	assert.NoError(t, report.RestartErr)
	assert.True(t, h.called("replace"))
	assert.False(t, h.called("restart"))
	assert.Equal(t, []string{"Update 1.2.0 -> 1.3.0? (y/N):", "Restart nym-node.service? (y/N):"}, con.prompts)
}
