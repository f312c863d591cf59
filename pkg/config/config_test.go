package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcat/resultshape/pkg/resultfmt"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)

	opts := cfg.Options()
	assert.Equal(t, 1024, opts.CacheSize)
	assert.False(t, opts.StrictNulls)
	assert.Equal(t, resultfmt.FormatJSON, cfg.OutputOptions().Format)
}

func TestLoad_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "reshape.yaml")
	require.NoError(t, os.WriteFile(file, []byte("format: yaml\nindent: 4\ncache-size: 16\n"), 0o600))

	t.Setenv("RESHAPE_CACHE_SIZE", "32")
	t.Setenv("RESHAPE_STRICT_NULLS", "true")

	cfg, err := Load(newFlags(t, "--config", file, "--indent", "0"))
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Format, "from file")
	assert.Equal(t, 32, cfg.CacheSize, "env overrides file")
	assert.True(t, cfg.StrictNulls, "from env")
	assert.Equal(t, 0, cfg.Indent, "flag overrides file")
	assert.Equal(t, "warn", cfg.LogLevel, "default")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"format", []string{"--format", "xml"}, "unknown output format"},
		{"color", []string{"--color", "sometimes"}, "color must be"},
		{"log level", []string{"--log-level", "trace"}, "unknown log level"},
		{"cache size", []string{"--cache-size", "0"}, "cache-size must be positive"},
		{"missing file", []string{"--config", "/nonexistent/reshape.yaml"}, "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
