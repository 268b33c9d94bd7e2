package launchd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseList covers running jobs, loaded-but-idle jobs, the header line,
// and trailing noise.
func TestParseList(t *testing.T) {
	t.Parallel()

	output := "PID\tStatus\tLabel\n" +
		"512\t0\tcom.homelab.llama-server\n" +
		"-\t78\tcom.homelab.whisper\n" +
		"\n" +
		"garbage\n"

	jobs := parseList(output)

	require.Equal(t, []Job{
		{PID: 512, LastExitStatus: 0, Label: "com.homelab.llama-server"},
		{PID: 0, LastExitStatus: 78, Label: "com.homelab.whisper"},
	}, jobs)
}

// TestIsAlreadyInState verifies the suppressed launchctl answers across the
// phrasings different macOS releases use.
func TestIsAlreadyInState(t *testing.T) {
	t.Parallel()

	suppressed := []string{
		"com.homelab.llama-server: Operation already in progress",
		"service already loaded",
		"Unload failed: 113: Could not find specified service",
		"com.homelab.llama-server: not loaded",
	}
	for _, output := range suppressed {
		require.True(t, isAlreadyInState(output), output)
	}

	require.False(t, isAlreadyInState("Load failed: 5: Input/output error"))
}

// TestMockManager_Records verifies call recording used by supervisor tests.
func TestMockManager_Records(t *testing.T) {
	t.Parallel()

	mock := NewMockManager()

	require.NoError(t, mock.Register(context.Background(), "/tmp/a.plist"))
	require.NoError(t, mock.Deregister(context.Background(), "/tmp/a.plist"))

	require.Equal(t, []string{"/tmp/a.plist"}, mock.RegisterCalls)
	require.Equal(t, []string{"/tmp/a.plist"}, mock.DeregisterCalls)
	require.Equal(t, 2, mock.Calls())
}
