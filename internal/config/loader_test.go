package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version"],
  "properties": {
    "version": {"type": "string"},
    "retry": {
      "type": "object",
      "properties": {
        "max_attempts": {"type": "integer", "minimum": 1},
        "base_delay": {"type": "string"}
      }
    }
  }
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndValidate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)
	configPath := writeFile(t, dir, "config.yaml", `
version: "1"
server:
  http_port: 9000
tiers:
  fast:
    memory_mb: 200
retry:
  max_attempts: 5
  base_delay: 250ms
`)

	cfg, err := LoadAndValidate(configPath, schemaPath)
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay.Std())
}

func TestLoadAndValidate_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)
	configPath := writeFile(t, dir, "config.yaml", `
version: "1"
retry:
  max_attempts: 0
`)

	_, err := LoadAndValidate(configPath, schemaPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadAndValidate_MissingVersion(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)
	configPath := writeFile(t, dir, "config.yaml", "server:\n  http_port: 9000\n")

	_, err := LoadAndValidate(configPath, schemaPath)
	require.Error(t, err)
}

func TestLoadAndValidate_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", testSchema)
	configPath := writeFile(t, dir, "config.yaml", "version: [unclosed")

	_, err := LoadAndValidate(configPath, schemaPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestTiersEqual(t *testing.T) {
	base := map[string]TierConfig{
		"fast": {
			MemoryMB: 142,
			Port:     8090,
			Source: SourceConfig{
				HuggingFace: &HuggingFaceSource{Repo: "ggerganov/whisper.cpp"},
			},
		},
	}

	same := map[string]TierConfig{
		"fast": {
			MemoryMB: 142,
			Port:     8090,
			Source: SourceConfig{
				HuggingFace: &HuggingFaceSource{Repo: "ggerganov/whisper.cpp"},
			},
		},
	}
	assert.True(t, TiersEqual(base, same))
	assert.True(t, TiersEqual(nil, map[string]TierConfig{}), "absent and empty sections are equivalent")

	retuned := map[string]TierConfig{
		"fast": {
			MemoryMB: 142,
			Port:     9999,
			Source: SourceConfig{
				HuggingFace: &HuggingFaceSource{Repo: "ggerganov/whisper.cpp"},
			},
		},
	}
	assert.False(t, TiersEqual(base, retuned), "a changed profile field must be detected")

	grown := map[string]TierConfig{
		"fast":     base["fast"],
		"accurate": {MemoryMB: 2900},
	}
	assert.False(t, TiersEqual(base, grown), "an added tier must be detected")
}

func TestTier_MergesDefaults(t *testing.T) {
	cfg := &Config{
		Tiers: map[string]TierConfig{
			"fast": {MemoryMB: 999},
		},
	}

	fast, ok := cfg.Tier("fast")
	require.True(t, ok)
	assert.Equal(t, 999, fast.MemoryMB, "configured value wins")
	assert.NotNil(t, fast.Source.HuggingFace, "missing fields fall back to defaults")
	assert.NotZero(t, fast.Port)

	accurate, ok := cfg.Tier("accurate")
	require.True(t, ok)
	def, _ := DefaultTier("accurate")
	assert.Equal(t, def, accurate, "unconfigured tier uses the built-in profile")

	_, ok = cfg.Tier("gigantic")
	assert.False(t, ok)
}
