// Package config loads engine and session configuration from YAML, with
// defaults applied in code rather than by a separate defaulting library.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BackendKind selects which storage backend the engine opens.
type BackendKind string

const (
	BackendMemory BackendKind = "memory"
	BackendBbolt  BackendKind = "bbolt"
)

// Config is the full engine configuration, loaded once at startup and
// passed to the engine constructor.
type Config struct {
	Backend BackendKind `yaml:"backend"`
	DataDir string      `yaml:"data_dir"`

	// DefaultBatchSize is the pull-operator batch size used when a
	// query doesn't request one explicitly.
	DefaultBatchSize int `yaml:"default_batch_size"`

	// Serializable enables read-range validation at commit time in
	// addition to the baseline optimistic write-write conflict check.
	Serializable bool `yaml:"serializable"`

	Session SessionConfig `yaml:"session"`
	CDC     CDCConfig     `yaml:"cdc"`
}

// SessionConfig covers per-session limits. Engine.NewSession applies
// MaxTransactionKeys to every session that does not set its own.
type SessionConfig struct {
	// AllowFullScan records whether a query without a primitive-id filter
	// may run. The engine does not read it, so no query is rejected on its
	// account.
	AllowFullScan bool `yaml:"allow_full_scan"`

	// MaxTransactionKeys bounds a command transaction's pending write
	// set; exceeding it fails the commit with CodeTxnTooLarge.
	MaxTransactionKeys int `yaml:"max_transaction_keys"`
}

// CDCConfig holds the CDC retention setting. The engine does not read it
// and runs no background sweep: committed CDC records stay in the log until
// a caller invokes the CDC log's Reclaim.
type CDCConfig struct {
	// RetentionVersions is loaded from retention_versions; it has no effect
	// on which CDC records the log keeps.
	RetentionVersions uint64 `yaml:"retention_versions"`
}

// Default returns the configuration used when no file is supplied: an
// in-memory backend, a batch size in the low thousands, optimistic
// (non-serializable) conflict detection, full scans permitted, and no CDC
// reclaim.
func Default() Config {
	return Config{
		Backend:          BackendMemory,
		DataDir:          "",
		DefaultBatchSize: 2000,
		Serializable:     false,
		Session: SessionConfig{
			AllowFullScan:      true,
			MaxTransactionKeys: 100_000,
		},
		CDC: CDCConfig{RetentionVersions: 0},
	}
}

// Load reads path as YAML, starting from Default() so a partial file only
// overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendBbolt:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Backend == BackendBbolt && c.DataDir == "" {
		return fmt.Errorf("config: backend %q requires data_dir", BackendBbolt)
	}
	if c.DefaultBatchSize <= 0 {
		return fmt.Errorf("config: default_batch_size must be positive, got %d", c.DefaultBatchSize)
	}
	return nil
}
