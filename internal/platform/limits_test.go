package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLimits(t *testing.T) {
	lt := DefaultLimits()

	l, ok := lt.Limit(Reddit, "headline")
	require.True(t, ok)
	assert.Equal(t, 100, l.MaxLength)
	assert.Equal(t, "title", l.PlatformField)

	l, ok = lt.Limit(Google, "description")
	require.True(t, ok)
	assert.Equal(t, 90, l.MaxLength)

	_, ok = lt.Limit(Google, "displayUrl")
	assert.False(t, ok)
	_, ok = lt.Limit(Meta, "headline")
	assert.False(t, ok)

	assert.Equal(t, []Platform{Google, Reddit}, lt.Platforms())
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := DefaultLimits()
	merged := base.Merge(LimitTable{
		"Reddit": {"headline": {MaxLength: 300, PlatformField: "title"}},
		Meta:     {"headline": {MaxLength: 40}},
	})

	l, _ := merged.Limit(Reddit, "headline")
	assert.Equal(t, 300, l.MaxLength)
	l, _ = base.Limit(Reddit, "headline")
	assert.Equal(t, 100, l.MaxLength)

	l, ok := merged.Limit(Meta, "headline")
	require.True(t, ok)
	assert.Equal(t, 40, l.MaxLength)
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
reddit:
  headline:
    max_length: 300
    platform_field: title
Meta:
  headline: {max_length: 40}
`)
	lt, err := ParseYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, 300, lt[Reddit]["headline"].MaxLength)
	assert.Equal(t, 40, lt[Meta]["headline"].MaxLength)

	_, err = ParseYAML([]byte("google:\n  headline: {max_length: 0}\n"))
	assert.ErrorContains(t, err, "max_length must be positive")

	_, err = ParseYAML([]byte("google: [not, a, map]"))
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("google:\n  displayUrl: {max_length: 15}\n"), 0o600))

	lt, err := LoadYAML(path)
	require.NoError(t, err)
	l, ok := lt.Limit(Google, "displayUrl")
	require.True(t, ok)
	assert.Equal(t, 15, l.MaxLength)
	l, _ = lt.Limit(Google, "headline")
	assert.Equal(t, 30, l.MaxLength)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open limits file")
}

func TestNormalize(t *testing.T) {
	lt := LimitTable{"GOOGLE": {"displayurl": {MaxLength: 20}, "sitelink": {MaxLength: 25}}}.Normalize()
	l, ok := lt.Limit(Google, "displayUrl")
	require.True(t, ok)
	assert.Equal(t, 20, l.MaxLength)
	_, ok = lt.Limit(Google, "sitelink")
	assert.True(t, ok)
}
