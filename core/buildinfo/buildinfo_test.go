package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillKeepsLinkerValues(t *testing.T) {
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })

	Version, Commit, Date = "dev", "local", ""
	fill(&debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})
	require.Equal(t, "v0.3.0", Version)
	require.Equal(t, "0123456", Commit)
	require.Equal(t, "2026-01-02T03:04:05Z", Date)

	Version, Commit, Date = "v1.0.0", "feedbee", "2025-01-01"
	fill(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})
	require.Equal(t, "v1.0.0", Version)
	require.Equal(t, "feedbee", Commit)
	require.Equal(t, "2025-01-01", Date)
}
