package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/wlseat/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command against a config file in a temp dir
// and returns what it wrote to stdout
func executeCommand(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	config.Set(nil)
	config.SetConfigPath("")
	configPath, socketPath, logLevel = "", "", ""
	jsonOutput, replayList, replaySession = false, false, 0
	t.Cleanup(func() {
		viper.Reset()
		config.Set(nil)
		config.SetConfigPath("")
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wlseat", "wlseat.toml")

	t.Run("creates config file when it doesn't exist", func(t *testing.T) {
		_, err := executeCommand(t, path, "config", "init", "--defaults")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "focus_policy")
	})

	t.Run("doesn't overwrite existing config without force", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("[input]\nfocus_policy = \"retain\"\n"), 0644))

		_, err := executeCommand(t, path, "config", "init", "--defaults")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[input]\nfocus_policy = \"retain\"\n", string(data))
	})

	t.Run("overwrites with force flag", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 999\n"), 0644))

		_, err := executeCommand(t, path, "config", "init", "--defaults", "--force")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEqual(t, "[window]\nwidth = 999\n", string(data))
		assert.Contains(t, string(data), "socket_path")
	})
}

func TestConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	out, err := executeCommand(t, path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))
}

func TestConfigShow(t *testing.T) {
	_, err := executeCommand(t, filepath.Join(t.TempDir(), "missing.toml"), "config", "show")
	assert.NoError(t, err)
}

func TestConfigSSHWhitelist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wlseat.toml")

	_, err := executeCommand(t, path, "config", "ssh", "add", "SHA256:abc")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SHA256:abc")

	_, err = executeCommand(t, path, "config", "ssh", "add", "SHA256:abc")
	assert.Error(t, err, "duplicate key")

	_, err = executeCommand(t, path, "config", "ssh", "clear")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "SHA256:abc")

	_, err = executeCommand(t, path, "config", "ssh", "remove", "SHA256:abc")
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wlseat.toml")
	require.NoError(t, os.WriteFile(path, []byte("[input\nfocus_policy = 1"), 0644))

	_, err := executeCommand(t, path, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}
