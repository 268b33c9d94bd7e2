package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContextFallback verifies that a bare context yields the global logger
// and that an attached logger round-trips.
func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Same(t, Logger(), FromContext(ctx))

	attached := New(zapcore.DebugLevel)
	ctx = ToContext(ctx, attached)
	require.Same(t, attached, FromContext(ctx))
}

// TestWithName verifies that naming is applied to the context logger only.
func TestWithName(t *testing.T) {
	t.Parallel()

	ctx := WithName(context.Background(), "installer")
	require.NotSame(t, Logger(), FromContext(ctx))
}
