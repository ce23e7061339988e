package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Tree    TreeConfig    `yaml:"tree"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type TreeConfig struct {
	Order int `yaml:"order"` // branching factor, at least 3
}

type StorageConfig struct {
	Path          string `yaml:"path"`           // directory holding the snapshot database
	Codec         string `yaml:"codec"`          // cbor | json
	SnapshotName  string `yaml:"snapshot_name"`  // snapshots are grouped by name
	KeepSnapshots int    `yaml:"keep_snapshots"` // older snapshots are pruned on checkpoint
	RestoreOnOpen *bool  `yaml:"restore_on_open"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	DefaultOrder         = 32
	DefaultPath          = "bplus_data"
	DefaultCodec         = "cbor"
	DefaultSnapshotName  = "default"
	DefaultKeepSnapshots = 3
	DefaultLogLevel      = "info"
)

var ErrInvalid = errors.New("config: invalid")

// Default returns a configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configPath. An empty path tries configs/bplus.yaml and
// bplus.yaml in turn and falls back to defaults when neither exists.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/bplus.yaml", "bplus.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				return parse(cfg, data, p)
			}
		}
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read")
	}
	return parse(cfg, data, configPath)
}

func parse(cfg *Config, data []byte, path string) (*Config, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	if cfg.Tree.Order == 0 {
		cfg.Tree.Order = DefaultOrder
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultPath
	}
	if cfg.Storage.Codec == "" {
		cfg.Storage.Codec = DefaultCodec
	}
	if cfg.Storage.SnapshotName == "" {
		cfg.Storage.SnapshotName = DefaultSnapshotName
	}
	if cfg.Storage.KeepSnapshots <= 0 {
		cfg.Storage.KeepSnapshots = DefaultKeepSnapshots
	}
	if cfg.Storage.RestoreOnOpen == nil {
		restore := true
		cfg.Storage.RestoreOnOpen = &restore
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// Validate rejects settings the store cannot run with.
func (c *Config) Validate() error {
	if c.Tree.Order < 3 {
		return errors.Wrapf(ErrInvalid, "tree.order %d is below 3", c.Tree.Order)
	}
	switch strings.ToLower(c.Storage.Codec) {
	case "cbor", "json":
	default:
		return errors.Wrapf(ErrInvalid, "storage.codec %q", c.Storage.Codec)
	}
	return nil
}

// ShouldRestore reports whether the store restores the latest snapshot on
// open.
func (s StorageConfig) ShouldRestore() bool {
	return s.RestoreOnOpen == nil || *s.RestoreOnOpen
}
