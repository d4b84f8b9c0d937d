// Package config provides configuration management for the permanode
// indexing and query service, handling environment variables and runtime
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
	Partition PartitionConfig `json:"partition"`
	Paging    PagingConfig    `json:"paging"`
	Collector CollectorConfig `json:"collector"`
	Syncer    SyncerConfig    `json:"syncer"`
	Broker    BrokerConfig    `json:"broker"`
	Analytics AnalyticsConfig `json:"analytics"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig controls the chi-based HTTP query façade.
type ServerConfig struct {
	Port              int           `json:"port"`
	Host              string        `json:"host"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	MaxRequestBody    int64         `json:"max_request_body_bytes"`
	EnableCircuitBrk  bool          `json:"enable_circuit_breaker"`
	Keyspaces         []string      `json:"keyspaces"`
	DefaultPageSize   int           `json:"default_page_size"`
	IndexPageSize     int           `json:"index_page_size"`
}

// StorageConfig is the ScyllaDB / gocql connection configuration.
type StorageConfig struct {
	Hosts          []string      `json:"hosts"`
	Keyspace       string        `json:"keyspace"`
	Consistency    string        `json:"consistency"`
	Timeout        time.Duration `json:"timeout"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	NumConns       int           `json:"num_conns"`
	RetryAttempts  int           `json:"retry_attempts"`
	PageSize       int           `json:"page_size"`
	Username       string        `json:"-"`
	Password       string        `json:"-"`
}

// PartitionConfig controls the chunk/partition layout (C2).
type PartitionConfig struct {
	ChunkSize      uint32 `json:"chunk_size"`
	PartitionCount uint16 `json:"partition_count"`
}

// PagingConfig controls the cross-partition paging engine (C3).
type PagingConfig struct {
	FetchSize int `json:"fetch_size"`
}

// CollectorConfig controls ingest dedup and fan-out (C5).
type CollectorConfig struct {
	MsgCacheSize    int      `json:"msg_cache_size"`
	MsgRefCacheSize int      `json:"msg_ref_cache_size"`
	FanOutWorkers   int      `json:"fan_out_workers"`
	DefaultKeyspace string   `json:"default_keyspace"`
	Keyspaces       []string `json:"keyspaces"`
}

// SyncerConfig controls gap discovery and solidifier dispatch (C6).
type SyncerConfig struct {
	SolidifierCount int           `json:"solidifier_count"`
	AskTimeout      time.Duration `json:"ask_timeout"`
	MaxPending      int           `json:"max_pending"`
}

// BrokerConfig is the MQTT upstream feed configuration.
type BrokerConfig struct {
	Enabled        bool          `json:"enabled"`
	BrokerURL      string        `json:"broker_url"`
	ClientID       string        `json:"client_id"`
	Topics         []string      `json:"topics"`
	Username       string        `json:"-"`
	Password       string        `json:"-"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	KeepAlive      time.Duration `json:"keep_alive"`
}

// AnalyticsConfig controls the chunked analytics fetch.
type AnalyticsConfig struct {
	BatchSize     uint32 `json:"batch_size"`
	RetryAttempts int    `json:"retry_attempts"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns the configuration with every field at its documented
// default, before environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8081,
			Host:             "0.0.0.0",
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     10 * time.Second,
			RequestTimeout:   5 * time.Second,
			MaxRequestBody:   1 << 20,
			EnableCircuitBrk: true,
			Keyspaces:        []string{"permanode"},
			DefaultPageSize:  100,
			IndexPageSize:    1000,
		},
		Storage: StorageConfig{
			Hosts:          []string{"127.0.0.1"},
			Keyspace:       "permanode",
			Consistency:    "ONE",
			Timeout:        10 * time.Second,
			ConnectTimeout: 5 * time.Second,
			NumConns:       4,
			RetryAttempts:  3,
			PageSize:       5000,
		},
		Partition: PartitionConfig{
			ChunkSize:      100000,
			PartitionCount: 1000,
		},
		Paging: PagingConfig{
			FetchSize: 2,
		},
		Collector: CollectorConfig{
			MsgCacheSize:    100000,
			MsgRefCacheSize: 100000,
			FanOutWorkers:   8,
			DefaultKeyspace: "permanode",
			Keyspaces:       []string{"permanode"},
		},
		Syncer: SyncerConfig{
			SolidifierCount: 10,
			AskTimeout:      30 * time.Second,
			MaxPending:      100,
		},
		Broker: BrokerConfig{
			Enabled:        false,
			BrokerURL:      "tcp://127.0.0.1:1883",
			ClientID:       "permanode-collector",
			Topics:         []string{"messages", "messages/referenced"},
			ConnectTimeout: 10 * time.Second,
			KeepAlive:      30 * time.Second,
		},
		Analytics: AnalyticsConfig{
			BatchSize:     5000,
			RetryAttempts: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from environment variables (optionally
// seeded by a .env file) over the documented defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := DefaultConfig()
	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadFromEnv(config *Config) {
	loadServerConfig(config)
	loadStorageConfig(config)
	loadPartitionConfig(config)
	loadPagingConfig(config)
	loadCollectorConfig(config)
	loadSyncerConfig(config)
	loadBrokerConfig(config)
	loadAnalyticsConfig(config)
	loadLoggingConfig(config)
}

func loadServerConfig(config *Config) {
	config.Server.Port = getIntEnvWithDefault("PERMANODE_PORT", config.Server.Port)
	config.Server.Host = getStringEnvWithDefault("PERMANODE_HOST", config.Server.Host)
	config.Server.ReadTimeout = getDurationEnvWithDefault("PERMANODE_READ_TIMEOUT", config.Server.ReadTimeout)
	config.Server.WriteTimeout = getDurationEnvWithDefault("PERMANODE_WRITE_TIMEOUT", config.Server.WriteTimeout)
	config.Server.RequestTimeout = getDurationEnvWithDefault("PERMANODE_REQUEST_TIMEOUT", config.Server.RequestTimeout)
	config.Server.MaxRequestBody = getInt64EnvWithDefault("PERMANODE_MAX_REQUEST_BODY", config.Server.MaxRequestBody)
	config.Server.EnableCircuitBrk = getBoolEnvWithDefault("PERMANODE_ENABLE_CIRCUIT_BREAKER", config.Server.EnableCircuitBrk)
	config.Server.DefaultPageSize = getIntEnvWithDefault("PERMANODE_DEFAULT_PAGE_SIZE", config.Server.DefaultPageSize)
	config.Server.IndexPageSize = getIntEnvWithDefault("PERMANODE_INDEX_PAGE_SIZE", config.Server.IndexPageSize)
	if ks := os.Getenv("PERMANODE_KEYSPACES"); ks != "" {
		config.Server.Keyspaces = splitCSV(ks)
	}
}

func loadStorageConfig(config *Config) {
	if hosts := os.Getenv("SCYLLA_HOSTS"); hosts != "" {
		config.Storage.Hosts = splitCSV(hosts)
	}
	config.Storage.Keyspace = getStringEnvWithDefault("SCYLLA_KEYSPACE", config.Storage.Keyspace)
	config.Storage.Consistency = getStringEnvWithDefault("SCYLLA_CONSISTENCY", config.Storage.Consistency)
	config.Storage.Timeout = getDurationEnvWithDefault("SCYLLA_TIMEOUT", config.Storage.Timeout)
	config.Storage.ConnectTimeout = getDurationEnvWithDefault("SCYLLA_CONNECT_TIMEOUT", config.Storage.ConnectTimeout)
	config.Storage.NumConns = getIntEnvWithDefault("SCYLLA_NUM_CONNS", config.Storage.NumConns)
	config.Storage.RetryAttempts = getIntEnvWithDefault("SCYLLA_RETRY_ATTEMPTS", config.Storage.RetryAttempts)
	config.Storage.PageSize = getIntEnvWithDefault("SCYLLA_PAGE_SIZE", config.Storage.PageSize)
	config.Storage.Username = getStringEnvWithDefault("SCYLLA_USERNAME", config.Storage.Username)
	config.Storage.Password = getStringEnvWithDefault("SCYLLA_PASSWORD", config.Storage.Password)
}

func loadPartitionConfig(config *Config) {
	if chunkSize := os.Getenv("PERMANODE_CHUNK_SIZE"); chunkSize != "" {
		if v, err := strconv.ParseUint(chunkSize, 10, 32); err == nil {
			config.Partition.ChunkSize = uint32(v)
		}
	}
	if partitionCount := os.Getenv("PERMANODE_PARTITION_COUNT"); partitionCount != "" {
		if v, err := strconv.ParseUint(partitionCount, 10, 16); err == nil {
			config.Partition.PartitionCount = uint16(v)
		}
	}
}

func loadPagingConfig(config *Config) {
	config.Paging.FetchSize = getIntEnvWithDefault("PERMANODE_FETCH_SIZE", config.Paging.FetchSize)
}

func loadCollectorConfig(config *Config) {
	config.Collector.MsgCacheSize = getIntEnvWithDefault("COLLECTOR_MSG_CACHE_SIZE", config.Collector.MsgCacheSize)
	config.Collector.MsgRefCacheSize = getIntEnvWithDefault("COLLECTOR_MSG_REF_CACHE_SIZE", config.Collector.MsgRefCacheSize)
	config.Collector.FanOutWorkers = getIntEnvWithDefault("COLLECTOR_FAN_OUT_WORKERS", config.Collector.FanOutWorkers)
	config.Collector.DefaultKeyspace = getStringEnvWithDefault("COLLECTOR_DEFAULT_KEYSPACE", config.Collector.DefaultKeyspace)
	if ks := os.Getenv("COLLECTOR_KEYSPACES"); ks != "" {
		config.Collector.Keyspaces = splitCSV(ks)
	}
}

func loadSyncerConfig(config *Config) {
	config.Syncer.SolidifierCount = getIntEnvWithDefault("SYNCER_SOLIDIFIER_COUNT", config.Syncer.SolidifierCount)
	config.Syncer.AskTimeout = getDurationEnvWithDefault("SYNCER_ASK_TIMEOUT", config.Syncer.AskTimeout)
	config.Syncer.MaxPending = getIntEnvWithDefault("SYNCER_MAX_PENDING", config.Syncer.MaxPending)
}

func loadBrokerConfig(config *Config) {
	config.Broker.Enabled = getBoolEnvWithDefault("MQTT_ENABLED", config.Broker.Enabled)
	config.Broker.BrokerURL = getStringEnvWithDefault("MQTT_BROKER_URL", config.Broker.BrokerURL)
	config.Broker.ClientID = getStringEnvWithDefault("MQTT_CLIENT_ID", config.Broker.ClientID)
	if topics := os.Getenv("MQTT_TOPICS"); topics != "" {
		config.Broker.Topics = splitCSV(topics)
	}
	config.Broker.Username = getStringEnvWithDefault("MQTT_USERNAME", config.Broker.Username)
	config.Broker.Password = getStringEnvWithDefault("MQTT_PASSWORD", config.Broker.Password)
	config.Broker.ConnectTimeout = getDurationEnvWithDefault("MQTT_CONNECT_TIMEOUT", config.Broker.ConnectTimeout)
	config.Broker.KeepAlive = getDurationEnvWithDefault("MQTT_KEEP_ALIVE", config.Broker.KeepAlive)
}

func loadAnalyticsConfig(config *Config) {
	if batchSize := os.Getenv("ANALYTICS_BATCH_SIZE"); batchSize != "" {
		if v, err := strconv.ParseUint(batchSize, 10, 32); err == nil {
			config.Analytics.BatchSize = uint32(v)
		}
	}
	config.Analytics.RetryAttempts = getIntEnvWithDefault("ANALYTICS_RETRY_ATTEMPTS", config.Analytics.RetryAttempts)
}

func loadLoggingConfig(config *Config) {
	config.Logging.Level = getStringEnvWithDefault("LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getStringEnvWithDefault("LOG_FORMAT", config.Logging.Format)
}

// Validate checks every section of the configuration, returning the first
// error found.
func (c *Config) Validate() error {
	if err := c.validateServerConfig(); err != nil {
		return err
	}
	if err := c.validateStorageConfig(); err != nil {
		return err
	}
	if err := c.validatePartitionConfig(); err != nil {
		return err
	}
	if err := c.validatePagingConfig(); err != nil {
		return err
	}
	if err := c.validateCollectorConfig(); err != nil {
		return err
	}
	if err := c.validateSyncerConfig(); err != nil {
		return err
	}
	if err := c.validateAnalyticsConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return errors.New("server host cannot be empty")
	}
	if len(c.Server.Keyspaces) == 0 {
		return errors.New("at least one keyspace must be configured")
	}
	return nil
}

func (c *Config) validateStorageConfig() error {
	if len(c.Storage.Hosts) == 0 {
		return errors.New("storage hosts cannot be empty")
	}
	if c.Storage.Keyspace == "" {
		return errors.New("storage keyspace cannot be empty")
	}
	switch strings.ToUpper(c.Storage.Consistency) {
	case "ONE", "QUORUM", "ALL", "LOCAL_QUORUM", "LOCAL_ONE":
	default:
		return fmt.Errorf("invalid storage consistency level: %s", c.Storage.Consistency)
	}
	if c.Storage.RetryAttempts < 0 {
		return errors.New("storage retry attempts cannot be negative")
	}
	return nil
}

func (c *Config) validatePartitionConfig() error {
	if c.Partition.ChunkSize == 0 {
		return errors.New("partition chunk size must be positive")
	}
	if c.Partition.PartitionCount == 0 {
		return errors.New("partition count must be positive")
	}
	return nil
}

func (c *Config) validatePagingConfig() error {
	if c.Paging.FetchSize < 1 {
		return errors.New("paging fetch size must be at least 1")
	}
	return nil
}

func (c *Config) validateCollectorConfig() error {
	if c.Collector.MsgCacheSize <= 0 {
		return errors.New("collector message cache size must be positive")
	}
	if c.Collector.MsgRefCacheSize <= 0 {
		return errors.New("collector message-reference cache size must be positive")
	}
	if c.Collector.FanOutWorkers <= 0 {
		return errors.New("collector fan-out worker count must be positive")
	}
	if len(c.Collector.Keyspaces) == 0 {
		return errors.New("collector must have at least one destination keyspace")
	}
	return nil
}

func (c *Config) validateSyncerConfig() error {
	if c.Syncer.SolidifierCount <= 0 {
		return errors.New("syncer solidifier count must be positive")
	}
	if c.Syncer.MaxPending <= 0 {
		return errors.New("syncer max pending must be positive")
	}
	return nil
}

func (c *Config) validateAnalyticsConfig() error {
	if c.Analytics.BatchSize == 0 {
		return errors.New("analytics batch size must be positive")
	}
	return nil
}

// getStringEnvWithDefault gets a string environment variable, or a default.
func getStringEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an int environment variable, or a default.
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an int64 environment variable, or a default.
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

// getBoolEnvWithDefault gets a bool environment variable, or a default.
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault gets a duration environment variable, or a default.
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return defaultValue
}

// splitCSV splits a comma-separated environment value, trimming whitespace
// around each entry.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
