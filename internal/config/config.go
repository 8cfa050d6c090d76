package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultTable         = "lecturers"
	DefaultTimeout       = 10 * time.Second
	DefaultProbeInterval = 15 * time.Second
	DefaultLogLevel      = "info"
)

// Config represents the main configuration for staffsync.
type Config struct {
	ClientID     string             `toml:"client_id"`
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	LogLevel     string             `toml:"log_level"` // debug, info, warn, error
	Remote       RemoteConfig       `toml:"remote"`
	Storage      StorageConfig      `toml:"storage"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
	Encryption   EncryptionConfig   `toml:"encryption"`
}

// RemoteConfig represents configuration for the authoritative record store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "memory" or "postgrest"

	// PostgREST-specific fields (only used when Type == "postgrest")
	URL     string `toml:"url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Table   string `toml:"table,omitempty"`
	Timeout string `toml:"timeout,omitempty"` // duration, e.g. "10s"
}

// StorageConfig represents configuration for the durable local medium that
// holds the cache snapshot and the pending action log.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "sqlite" or "s3"

	// Directory for filesystem and sqlite media
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// ConnectivityConfig controls how online/offline is decided.
type ConnectivityConfig struct {
	Mode          string `toml:"mode"` // "probe", "online" or "offline"
	ProbeInterval string `toml:"probe_interval,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for encrypted exports.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// TimeoutDuration parses Timeout, falling back to DefaultTimeout when unset.
func (c RemoteConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("remote.timeout", c.Timeout, DefaultTimeout)
}

// TableName returns the configured table or DefaultTable.
func (c RemoteConfig) TableName() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// ProbeIntervalDuration parses ProbeInterval, falling back to DefaultProbeInterval.
func (c ConnectivityConfig) ProbeIntervalDuration() (time.Duration, error) {
	return parseDuration("connectivity.probe_interval", c.ProbeInterval, DefaultProbeInterval)
}

// ForceOffline switches connectivity to "offline" so no probe is made.
func (c *Config) ForceOffline() {
	c.Connectivity.Mode = "offline"
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	return d, nil
}

// NewConfig creates a new Config with the provided values and defaults:
// a PostgREST remote, a SQLite medium under baseDir, and probing connectivity.
func NewConfig(clientID, baseDir string) *Config {
	return &Config{
		ClientID: clientID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: DefaultLogLevel,
		Remote: RemoteConfig{
			Type:    "postgrest",
			Table:   DefaultTable,
			Timeout: DefaultTimeout.String(),
		},
		Storage: StorageConfig{
			Type: "sqlite",
			Dir:  filepath.Join(baseDir, "db"),
		},
		Connectivity: ConnectivityConfig{
			Mode:          "probe",
			ProbeInterval: DefaultProbeInterval.String(),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "staffsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "staffsync.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file can hold an API key and S3 secrets.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
