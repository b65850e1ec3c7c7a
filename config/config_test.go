package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicyDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	pol, err := LoadPolicy()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxTurns, pol.MaxTurns)
	assert.Equal(t, 30*time.Second, pol.ShellTimeout())
	assert.Equal(t, DefaultMaxReadBytes, pol.MaxReadBytes)
	assert.Empty(t, pol.AllowedCommands)
	assert.Contains(t, pol.FilesystemAccess.Hidden, ".meowcli")
	assert.Contains(t, pol.FilesystemAccess.Hidden, ".meowcli/**")
}

func TestLoadPolicyProjectOverridesUser(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)

	writePolicy(t, home, "max_turns: 10\nshell_timeout_seconds: 5\n")
	writePolicy(t, project, "max_turns: 3\nallowed_commands:\n  - \"^ls\"\n")

	pol, err := LoadPolicy()
	require.NoError(t, err)

	// Project wins where both set a value; user settings survive elsewhere.
	assert.Equal(t, 3, pol.MaxTurns)
	assert.Equal(t, 5*time.Second, pol.ShellTimeout())
	assert.Equal(t, []string{"^ls"}, pol.AllowedCommands)
}

func TestLoadPolicyClampsBadLimits(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	writePolicy(t, home, "max_turns: -1\nmax_read_bytes: 0\n")

	pol, err := LoadPolicy()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTurns, pol.MaxTurns)
	assert.Equal(t, DefaultMaxReadBytes, pol.MaxReadBytes)
}

func writePolicy(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".meowcli")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(content), 0644))
}

func TestOpenStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meowcli", "config.json")
	s, err := OpenStore(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderBase, s.DefaultProvider())
	assert.Equal(t, []string{"base", "gemini", "openrouter"}, s.Providers())

	pc, err := s.Get(ProviderOpenRouter)
	require.NoError(t, err)
	assert.Equal(t, "", pc.APIKey)
	assert.Equal(t, PlaceholderModel, pc.Model)
}

func TestStoreSetAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := OpenStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Set(ProviderOpenRouter, "api_key", "sk-or-v1-abcdef123456"))
	require.NoError(t, s.Set(ProviderOpenRouter, "model", "deepseek/deepseek-chat"))
	require.NoError(t, s.SetDefaultProvider(ProviderOpenRouter))
	require.NoError(t, s.Save())

	reloaded, err := OpenStore(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenRouter, reloaded.DefaultProvider())
	pc, err := reloaded.Get(ProviderOpenRouter)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-v1-abcdef123456", pc.APIKey)
	assert.Equal(t, "deepseek/deepseek-chat", pc.Model)
}

func TestStoreMergesMissingProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	partial := `{"default_provider": "gemini", "providers": {"gemini": {"api_key": "AIzaXYZ", "model": "gemini-pro"}}}`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	s, err := OpenStore(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, s.DefaultProvider())

	// Untouched providers come back with defaults.
	pc, err := s.Get(ProviderBase)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderModel, pc.Model)

	kept, err := s.Get(ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "AIzaXYZ", kept.APIKey)
}

func TestStoreCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := OpenStore(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderBase, s.DefaultProvider())
}

func TestStoreRejectsUnknownProviderAndField(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	err = s.Set("anthropic", "api_key", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = s.Set(ProviderBase, "temperature", "1")
	require.Error(t, err)

	err = s.SetDefaultProvider("anthropic")
	require.Error(t, err)

	_, err = s.Get("anthropic")
	require.Error(t, err)
}
