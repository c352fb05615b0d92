package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stake-plus/defcalls/src/defence"
	"github.com/stake-plus/defcalls/src/defence/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedState(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	reg, err := store.OpenRegistry(filepath.Join(dir, store.RegistryFile), zap.NewNop())
	require.NoError(t, err)
	ledger, err := store.OpenLedger(filepath.Join(dir, store.LedgerFile), zap.NewNop())
	require.NoError(t, err)

	live := base.Add(3 * time.Hour)
	stale := base.Add(-time.Hour)
	require.NoError(t, reg.Add(defence.Call{
		ChannelID: "live-1", ChannelName: "alpha-base-5000-defence", Kind: defence.KindNormal,
		Amount: 5000, Coordinates: defence.Coordinates{X: 10, Y: -20},
		AttackTime: &live, CreatedAt: base, ExpiresAt: live, Status: defence.StatusOpen,
	}))
	require.NoError(t, reg.Add(defence.Call{
		ChannelID: "stale-1", ChannelName: "beta-200-defence", Kind: defence.KindNormal,
		Amount: 200, AttackTime: &stale, CreatedAt: base.Add(-5 * time.Hour), ExpiresAt: stale, Status: defence.StatusOpen,
	}))
	require.NoError(t, ledger.Append("live-1", defence.Submission{Units: 2000, DeclaredTime: "15:00", DisplayName: "Warden", SubmittedAt: base}))
	require.NoError(t, ledger.Append("stale-1", defence.Submission{Units: 100, DisplayName: "Scout", SubmittedAt: base.Add(-2 * time.Hour)}))
	return dir
}

func TestCallsCmd(t *testing.T) {
	dir := seedState(t)
	out, err := run(t, "calls", "--state-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha-base-5000-defence")
	assert.Contains(t, out, "10|-20")
	assert.Contains(t, out, "stale-1")

	out, err = run(t, "calls", "--state-dir", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "no tracked calls\n", out)
}

func TestSubmissionsCmd(t *testing.T) {
	dir := seedState(t)
	out, err := run(t, "submissions", "--state-dir", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Warden")
	assert.Contains(t, lines[1], "15:00")
	assert.Contains(t, lines[2], "Scout")
}

func TestDeadlineCmd(t *testing.T) {
	out, err := run(t, "deadline", "00:15", "--now", "2025-03-10T23:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11T23:15:00Z\n", out)

	_, err = run(t, "deadline", "24:00", "--now", "2025-03-10T23:30:00Z")
	assert.ErrorIs(t, err, defence.ErrInvalidTimeFormat)

	_, err = run(t, "deadline", "10:00", "--now", "yesterday")
	assert.Error(t, err)
}

func TestPruneCmd(t *testing.T) {
	dir := seedState(t)
	out, err := run(t, "prune", "--state-dir", dir, "--now", base.Format(time.RFC3339))
	require.NoError(t, err)
	assert.Contains(t, out, "pruned stale-1")
	assert.Contains(t, out, "1 record(s) pruned")

	reg, err := store.OpenRegistry(filepath.Join(dir, store.RegistryFile), zap.NewNop())
	require.NoError(t, err)
	calls, err := reg.LoadAll()
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "live-1", calls[0].ChannelID)

	ledger, err := store.OpenLedger(filepath.Join(dir, store.LedgerFile), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"live-1"}, ledger.Channels())
}
