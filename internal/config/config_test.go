package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"permanode"}, cfg.Server.Keyspaces)
	assert.Equal(t, 100, cfg.Server.DefaultPageSize)
	assert.Equal(t, 1000, cfg.Server.IndexPageSize)

	assert.Equal(t, "permanode", cfg.Storage.Keyspace)
	assert.Equal(t, "ONE", cfg.Storage.Consistency)
	assert.Equal(t, 3, cfg.Storage.RetryAttempts)

	assert.Equal(t, uint32(100000), cfg.Partition.ChunkSize)
	assert.Equal(t, uint16(1000), cfg.Partition.PartitionCount)

	assert.Equal(t, 2, cfg.Paging.FetchSize)

	assert.Equal(t, 10, cfg.Syncer.SolidifierCount)
	assert.Equal(t, uint32(5000), cfg.Analytics.BatchSize)
	assert.Equal(t, 1, cfg.Analytics.RetryAttempts)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "empty host", mutate: func(c *Config) { c.Server.Host = "" }, wantErr: true},
		{name: "no keyspaces", mutate: func(c *Config) { c.Server.Keyspaces = nil }, wantErr: true},
		{name: "no storage hosts", mutate: func(c *Config) { c.Storage.Hosts = nil }, wantErr: true},
		{name: "bad consistency", mutate: func(c *Config) { c.Storage.Consistency = "BOGUS" }, wantErr: true},
		{name: "zero chunk size", mutate: func(c *Config) { c.Partition.ChunkSize = 0 }, wantErr: true},
		{name: "zero partition count", mutate: func(c *Config) { c.Partition.PartitionCount = 0 }, wantErr: true},
		{name: "zero fetch size", mutate: func(c *Config) { c.Paging.FetchSize = 0 }, wantErr: true},
		{name: "no collector keyspaces", mutate: func(c *Config) { c.Collector.Keyspaces = nil }, wantErr: true},
		{name: "zero solidifier count", mutate: func(c *Config) { c.Syncer.SolidifierCount = 0 }, wantErr: true},
		{name: "zero analytics batch size", mutate: func(c *Config) { c.Analytics.BatchSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PERMANODE_PORT", "9090")
	t.Setenv("PERMANODE_KEYSPACES", "mainnet, testnet")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1,10.0.0.2")
	t.Setenv("PERMANODE_CHUNK_SIZE", "50000")
	t.Setenv("PERMANODE_FETCH_SIZE", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"mainnet", "testnet"}, cfg.Server.Keyspaces)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Storage.Hosts)
	assert.Equal(t, uint32(50000), cfg.Partition.ChunkSize)
	assert.Equal(t, 4, cfg.Paging.FetchSize)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitCSV("a, b ,c"))
	assert.Equal(t, []string{"a"}, splitCSV("a"))
}

func TestGetDurationEnvWithDefault(t *testing.T) {
	t.Setenv("PERMANODE_TEST_TIMEOUT", "2s")
	assert.Equal(t, 2*time.Second, getDurationEnvWithDefault("PERMANODE_TEST_TIMEOUT", time.Second))
	assert.Equal(t, time.Second, getDurationEnvWithDefault("PERMANODE_TEST_TIMEOUT_UNSET", time.Second))
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
