package proc

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSystemTable_FindPID_SkipsSelfAndMisses verifies the scan never
// reports the calling process and returns zero for absent names.
func TestSystemTable_FindPID_SkipsSelfAndMisses(t *testing.T) {
	t.Parallel()

	table := NewSystemTable()

	self := filepath.Base(os.Args[0])

	pid, err := table.FindPID(self)
	require.NoError(t, err)
	require.NotEqual(t, os.Getpid(), pid)

	pid, err = table.FindPID("steward-definitely-not-running")
	require.NoError(t, err)
	require.Zero(t, pid)
}

// TestSystemTable_FindPID_FindsChild verifies an exact-name match against a
// real child process.
func TestSystemTable_FindPID_FindsChild(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses sleep(1)")
	}

	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())

	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	table := NewSystemTable()

	pid, err := table.FindPID("sleep")
	require.NoError(t, err)
	require.NotZero(t, pid)
}

// TestSnapshot_SelfHasDetail verifies detail collection against our own pid.
func TestSnapshot_SelfHasDetail(t *testing.T) {
	t.Parallel()

	detail, err := Snapshot(context.Background(), os.Getpid())
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), detail.PID)
	require.False(t, detail.StartedAt.IsZero())
	require.NotZero(t, detail.RSSBytes)
}
