package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeadTail(t *testing.T) {
	require.Equal(t, "abc", Head("abcdef", 3))
	require.Equal(t, "def", Tail("abcdef", 3))
	require.Equal(t, "ab", Head("ab", 200))
	require.Equal(t, "ab", Tail("ab", 1000))
	require.Equal(t, "éé", Head("ééé", 2))
	require.Equal(t, "", Head("abc", 0))
}

func TestBytes(t *testing.T) {
	require.Equal(t, "1.0 KiB", Bytes(1024))
	require.Equal(t, "unknown", Bytes(-1))
}

func TestElapsed(t *testing.T) {
	require.Equal(t, "3.5 seconds", Elapsed(3500*time.Millisecond))
	require.Equal(t, "1.5 minutes", Elapsed(90*time.Second))
	require.Equal(t, "2.0 hours", Elapsed(2*time.Hour))
}
