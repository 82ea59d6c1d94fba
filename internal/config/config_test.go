package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("listen: \":9000\"\ndebounce: 250ms\ndiff_context: -1\nwatch: false\nauthor_name: Ada\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, -1, cfg.DiffContext)
	assert.False(t, cfg.Watch)
	assert.Equal(t, "Ada", cfg.AuthorName)
	assert.Equal(t, Default().CommitLimit, cfg.CommitLimit)
	assert.Equal(t, Default().Session, cfg.Session)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debounce: [nope"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--debounce=1s", "--watch=false", "-v", "--limit", "10"}))

	cfg := Default()
	cfg.Listen = "from-file:1"
	require.NoError(t, cfg.ApplyFlags(fs))
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.False(t, cfg.Watch)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 10, cfg.CommitLimit)
	assert.Equal(t, "from-file:1", cfg.Listen)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cfg := Default()
	cfg.Repo = ""
	cfg.Debounce = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo or remote")
	assert.Contains(t, err.Error(), "debounce")

	cfg = Default()
	cfg.Repo = ""
	cfg.Remote = "http://localhost:7420"
	assert.NoError(t, cfg.Validate())
}
