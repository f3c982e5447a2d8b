package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads valid TOML config", func(t *testing.T) {
		path := writeConfig(t, `
endpoints = ["wss://rpc.example.com", "wss://backup.example.com"]
log_level = "debug"
interval = "10m"

[relay_endpoints]
42 = "wss://relay.example.com"

[[accounts]]
address = "`+aliceSubstrate+`"
note = "treasury"
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, []string{"wss://rpc.example.com", "wss://backup.example.com"}, cfg.Endpoints)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "10m", cfg.Interval)
		require.Len(t, cfg.Accounts, 1)
		assert.Equal(t, aliceSubstrate, cfg.Accounts[0].Address)
		assert.Equal(t, "treasury", cfg.Accounts[0].Note)

		relays, err := cfg.RelayMap()
		require.NoError(t, err)
		assert.Equal(t, map[uint16]string{42: "wss://relay.example.com"}, relays)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `endpoint = "wss://rpc.example.com"`))
		require.NoError(t, err)

		assert.Equal(t, []string{"wss://rpc.example.com"}, cfg.Endpoints)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, "UTC", cfg.Timezone)
		assert.True(t, cfg.ShouldRunImmediately())
		assert.Equal(t, DefaultReleasePallet, cfg.ReleasePallet)
		assert.Equal(t, DefaultReleaseStorage, cfg.ReleaseStorage)
		assert.Equal(t, DefaultAddressCacheSize, cfg.AddressCacheSize)
	})

	t.Run("network preset", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `network = "rococo"`))
		require.NoError(t, err)
		assert.Equal(t, []string{Presets["rococo"]}, cfg.Endpoints)
	})

	t.Run("environment variables override config file", func(t *testing.T) {
		path := writeConfig(t, `
endpoint = "wss://rpc.example.com"
log_level = "info"
`)
		t.Setenv("BALANCE_LOOKUP_LOG_LEVEL", "debug")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("comma-separated endpoints from env", func(t *testing.T) {
		path := writeConfig(t, ``)
		t.Setenv("BALANCE_LOOKUP_ENDPOINTS", "wss://a.example.com, wss://b.example.com")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"wss://a.example.com", "wss://b.example.com"}, cfg.Endpoints)
	})

	t.Run("accounts from env are appended", func(t *testing.T) {
		path := writeConfig(t, `endpoint = "wss://rpc.example.com"`)
		t.Setenv("BALANCE_LOOKUP_ACCOUNTS", aliceSubstrate+",5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty")

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Len(t, cfg.Accounts, 2)
		assert.Equal(t, aliceSubstrate, cfg.Accounts[0].Address)
		assert.Empty(t, cfg.Accounts[0].Note)
	})

	t.Run("validation fails for invalid account", func(t *testing.T) {
		path := writeConfig(t, `
endpoint = "wss://rpc.example.com"

[[accounts]]
address = "not-an-address"
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation")
	})

	t.Run("missing endpoint fails normalization", func(t *testing.T) {
		_, err := Load(writeConfig(t, `log_level = "info"`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "normalization")
	})

	t.Run("unreadable config file", func(t *testing.T) {
		_, err := Load(writeConfig(t, `endpoint = [`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})
}

func TestLoadWithFlags(t *testing.T) {
	newFlags := func(t *testing.T, args ...string) *pflag.FlagSet {
		t.Helper()
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.String("endpoint", "", "")
		fs.String("network", "", "")
		fs.String("log-level", "info", "")
		fs.String("interval", "", "")
		require.NoError(t, fs.Parse(args))
		return fs
	}

	path := writeConfig(t, `
endpoints = ["wss://file-a.example.com", "wss://file-b.example.com"]
log_level = "warn"
`)

	t.Run("unset flags keep file values", func(t *testing.T) {
		cfg, err := LoadWithFlags(path, newFlags(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"wss://file-a.example.com", "wss://file-b.example.com"}, cfg.Endpoints)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("endpoint flag replaces file endpoints", func(t *testing.T) {
		cfg, err := LoadWithFlags(path, newFlags(t, "--endpoint", "ws://127.0.0.1:9944", "--log-level", "debug"))
		require.NoError(t, err)
		assert.Equal(t, []string{"ws://127.0.0.1:9944"}, cfg.Endpoints)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("network flag selects a preset", func(t *testing.T) {
		cfg, err := LoadWithFlags(path, newFlags(t, "--network", "polkadot"))
		require.NoError(t, err)
		assert.Equal(t, []string{Presets["polkadot"]}, cfg.Endpoints)
	})

	t.Run("flag works without a config file", func(t *testing.T) {
		cfg, err := LoadWithFlags("", newFlags(t, "--endpoint", "wss://rpc.example.com"))
		require.NoError(t, err)
		assert.Equal(t, []string{"wss://rpc.example.com"}, cfg.Endpoints)
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := LoadWithFlags(filepath.Join(t.TempDir(), "missing.toml"), newFlags(t, "--endpoint", "wss://rpc.example.com"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})
}
