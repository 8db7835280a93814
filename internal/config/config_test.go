package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()

	require.Equal(t, 3, opts.ErrorTurnThreshold)
	require.Equal(t, int64(2000), opts.TruncateTokenThreshold)
	require.Equal(t, 2000, opts.TruncateHeadRunes)
	require.Equal(t, 500, opts.TruncateTailRunes)
	require.Equal(t, 50, opts.HistoryLimit)
	require.Equal(t, 10*time.Second, opts.FetchTimeout.Std())
	require.Empty(t, opts.ReasoningPlaceholder)
	require.NoError(t, opts.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()
	opts, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultOptions(), opts)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "winnow.yaml")
	content := `
error_turn_threshold: 7
protected_tools: [deploy]
reasoning_placeholder: "Reasoning elided."
fetch_timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, opts.ErrorTurnThreshold)
	require.Equal(t, []string{"deploy"}, opts.ProtectedTools)
	require.Equal(t, "Reasoning elided.", opts.ReasoningPlaceholder)
	require.Equal(t, 30*time.Second, opts.FetchTimeout.Std())
	// Untouched fields keep their defaults.
	require.Equal(t, int64(2000), opts.TruncateTokenThreshold)
}

func TestLoad_BadYAMLFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "winnow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- not yaml"), 0o644))

	opts, err := Load(path)
	require.Error(t, err)
	require.Equal(t, DefaultOptions(), opts)
}

func TestLoad_InvalidDurationRejected(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "winnow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch_timeout: banana"), 0o644))

	opts, err := Load(path)
	require.Error(t, err)
	require.Equal(t, DefaultOptions(), opts)
}

func TestLoad_InvalidPatternRejected(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "winnow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`protected_paths: ["[unterminated"]`), 0o644))

	opts, err := Load(path)
	require.Error(t, err)
	require.Equal(t, DefaultOptions(), opts)
}

func TestIsProtectedTool(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	require.True(t, opts.IsProtectedTool("task"))
	require.False(t, opts.IsProtectedTool("grep"))
	require.False(t, opts.IsProtectedTool("todowrite"),
		"todo writes must stay prunable so stale plans can be superseded")
}

func TestIsPurgeProtectedTool(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	require.True(t, opts.IsPurgeProtectedTool("bash"), "failed commands carry signal")
	require.True(t, opts.IsPurgeProtectedTool("task"), "global protection implies purge protection")
	require.False(t, opts.IsPurgeProtectedTool("grep"))
}

func TestIsProtectedPath(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()

	require.True(t, opts.IsProtectedPath("project/.env"))
	require.True(t, opts.IsProtectedPath("a/b/.env.local"))
	require.True(t, opts.IsProtectedPath("certs/server.pem"))
	require.True(t, opts.IsProtectedPath("deep/nested/id_rsa.key"))
	require.False(t, opts.IsProtectedPath("main.go"))
	require.False(t, opts.IsProtectedPath("docs/environment.md"))
}
