package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/learner-ns/lns/fixtures"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		config, err := LoadConfig("../../fixtures/tests/config/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, config)

		assert.Equal(t, "debug", config.Logger.Verbosity)
		assert.Equal(t, "json", config.Logger.Encoding)
		assert.Equal(t, filepath.Join("../../fixtures/tests/config", "walletkey.json"), config.Wallet.Keyfile)
		require.Len(t, config.Wallet.Chains, 2)
		assert.Equal(t, int64(80001), config.Wallet.Chains[1].ChainID)
		assert.Equal(t, "http://localhost:8546", config.Wallet.Chains[1].RPCURL)
		assert.Equal(t, "0x123", config.Contract.Address)
		assert.Equal(t, 2*time.Second, config.Registry.RefreshDelay)
		assert.Equal(t, 30*time.Second, config.Registry.PollInterval)
		assert.Equal(t, 4, config.Registry.Concurrency)
		assert.Equal(t, 5*time.Minute, config.Tx.ConfirmTimeout)
	})

	t.Run("defaults fill omitted sections", func(t *testing.T) {
		config, err := LoadConfig("../../fixtures/tests/config/valid_config.yaml")
		require.NoError(t, err)

		assert.Equal(t, networks.Mumbai, config.Network)
		assert.Equal(t, ".learner", config.Contract.TLD)
		assert.Equal(t, time.Hour, config.TxLog.TTL)
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := LoadConfig("non-existent-file.yaml")
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir, err := os.Getwd()
		require.NoError(t, err)

		configPath := filepath.Join(dir, "..", "..", "fixtures", "tests", "invalid_config", "config.yaml")
		_, err = LoadConfig(configPath)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("registry:\n  concurrency: 0\n"), 0600))

		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "concurrency")
	})
}

func TestConfigTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, fixtures.ConfigTemplate, 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "walletkey.json"), config.Wallet.Keyfile)
	assert.Equal(t, networks.Mumbai, config.Network)
	assert.Equal(t, time.Second, config.Registry.RefreshDelay)
}

func TestGetDefaultConfigHome(t *testing.T) {
	assert.Contains(t, GetDefaultConfigHome(), ".lns")
}
