package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-generator/internal/fallback"
	"campaign-generator/internal/platform"
)

func fromYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	return v
}

func TestDecode_Defaults(t *testing.T) {
	cfg, err := Decode(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Server.ShutdownSeconds)
	assert.Equal(t, "reddit", cfg.Generation.Platform)
	assert.Equal(t, "skip", cfg.Generation.Strategy)
	assert.Equal(t, 50000, cfg.Generation.MaxRows)
	assert.Equal(t, 1024, cfg.Generation.RegexCache)
	assert.Equal(t, 1024, cfg.Generation.Templates)
	assert.Equal(t, fallback.DefaultTruncationConfig(), cfg.Generation.Truncation)

	table, err := cfg.LimitTable()
	require.NoError(t, err)
	assert.Equal(t, platform.DefaultLimits(), table)
}

func TestDecode_File(t *testing.T) {
	cfg, err := Decode(fromYAML(t, `
server:
  addr: ":9090"
  log_level: debug
generation:
  platform: google
  strategy: use_fallback
  max_rows: 10
  truncation:
    description: false
  fallback_ad:
    headline: Shop now
    final_url: https://example.com
limits:
  reddit:
    headline: {max_length: 300, platform_field: title}
  google:
    displayUrl: {max_length: 20}
`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "use_fallback", cfg.Generation.Strategy)
	assert.Equal(t, 10, cfg.Generation.MaxRows)
	assert.True(t, cfg.Generation.Truncation.Headline)
	assert.False(t, cfg.Generation.Truncation.Description)
	require.NotNil(t, cfg.Generation.FallbackAd)
	assert.Equal(t, "https://example.com", cfg.Generation.FallbackAd.FinalURL)

	table, err := cfg.LimitTable()
	require.NoError(t, err)
	l, _ := table.Limit(platform.Reddit, "headline")
	assert.Equal(t, 300, l.MaxLength)
	l, ok := table.Limit(platform.Google, "displayUrl")
	require.True(t, ok)
	assert.Equal(t, 20, l.MaxLength)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(fromYAML(t, "generation:\n  strategy: shrink\n"))
	assert.ErrorContains(t, err, "invalid config")

	_, err = Decode(fromYAML(t, "generation:\n  regex_cache_size: 4\n"))
	assert.ErrorContains(t, err, "invalid config")

	_, err = Decode(fromYAML(t, "generation:\n  template_cache_size: 9\n"))
	assert.ErrorContains(t, err, "invalid config")

	_, err = Decode(fromYAML(t, "generation:\n  strategy: use_fallback\n"))
	assert.ErrorIs(t, err, fallback.ErrMissingFallbackAd)

	_, err = Decode(fromYAML(t, "limits:\n  google:\n    headline: {max_length: -1}\n"))
	assert.ErrorContains(t, err, "max_length must be positive")
}

func TestLimitTable_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("meta:\n  headline: {max_length: 40}\n"), 0o600))

	cfg, err := Decode(fromYAML(t, "limits_file: "+path+"\nlimits:\n  meta:\n    headline: {max_length: 27}\n"))
	require.NoError(t, err)

	table, err := cfg.LimitTable()
	require.NoError(t, err)
	l, ok := table.Limit(platform.Meta, "headline")
	require.True(t, ok)
	assert.Equal(t, 27, l.MaxLength)
	l, _ = table.Limit(platform.Google, "headline")
	assert.Equal(t, 30, l.MaxLength)

	cfg.LimitsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.LimitTable()
	assert.Error(t, err)
}
