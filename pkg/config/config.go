package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Server defaults
const (
	DefaultPort         = "8080"
	DefaultDataDir      = "./data/dimcluster"
	DefaultStorage      = StorageBadger
	DefaultMaxStorageGB = 1
	DefaultMaxMemoryMB  = 48
)

// Storage backends
const (
	StorageBadger = "badger"
	StorageMemory = "memory"
)

// HTTP server timeouts
const (
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ShutdownTimeout    = 30 * time.Second
)

// Background tasks
const (
	BadgerGCInterval     = 10 * time.Minute
	BadgerGCDiscardRatio = 0.5
)

// Request limits
const (
	MaxRowsPerRequest       = 50000
	MaxDimensionsPerRequest = 1000
	MaxDatasetNameLength    = 128
	MaxRequestBodyBytes     = 64 << 20
	ClusterTimeout          = 30 * time.Second
)

// Result cache
const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
)

// Import/export
const (
	MaxImportBatchSize = 5000
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)

// Environment variables
const (
	EnvConfigFile   = "DIMCLUSTER_CONFIG"
	EnvPort         = "PORT"
	EnvDataDir      = "DIMCLUSTER_DATA_DIR"
	EnvStorage      = "DIMCLUSTER_STORAGE"
	EnvMaxStorageGB = "DIMCLUSTER_MAX_STORAGE_GB"
	EnvMaxMemoryMB  = "DIMCLUSTER_MAX_MEMORY_MB"
	EnvCacheSize    = "DIMCLUSTER_CACHE_SIZE"
)

// Config holds service configuration
type Config struct {
	Port         string        `yaml:"port"`
	DataDir      string        `yaml:"data_dir"`
	Storage      string        `yaml:"storage"`
	MaxStorageGB int64         `yaml:"max_storage_gb"`
	MaxMemoryMB  int64         `yaml:"max_memory_mb"`
	CacheSize    int           `yaml:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:         DefaultPort,
		DataDir:      DefaultDataDir,
		Storage:      DefaultStorage,
		MaxStorageGB: DefaultMaxStorageGB,
		MaxMemoryMB:  DefaultMaxMemoryMB,
		CacheSize:    DefaultCacheSize,
		CacheTTL:     DefaultCacheTTL,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// DIMCLUSTER_CONFIG (if set), then individual environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays values from a YAML file
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv(EnvPort, c.Port)
	c.DataDir = getEnv(EnvDataDir, c.DataDir)
	c.Storage = getEnv(EnvStorage, c.Storage)
	c.MaxStorageGB = getEnvInt64(EnvMaxStorageGB, c.MaxStorageGB)
	c.MaxMemoryMB = getEnvInt64(EnvMaxMemoryMB, c.MaxMemoryMB)
	c.CacheSize = int(getEnvInt64(EnvCacheSize, int64(c.CacheSize)))
}

// Validate rejects configurations the server cannot start with
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	switch c.Storage {
	case StorageBadger:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for badger storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q (want %q or %q)", c.Storage, StorageBadger, StorageMemory)
	}
	if c.MaxStorageGB < 0 {
		return fmt.Errorf("max_storage_gb must be non-negative, got %d", c.MaxStorageGB)
	}
	if c.MaxMemoryMB < 0 {
		return fmt.Errorf("max_memory_mb must be non-negative, got %d", c.MaxMemoryMB)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", c.CacheSize)
	}
	return nil
}

// MaxStorageBytes returns the storage limit in bytes (0 = unlimited)
func (c Config) MaxStorageBytes() int64 {
	return c.MaxStorageGB * 1024 * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt64 gets an int64 from environment variable or returns default
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}
