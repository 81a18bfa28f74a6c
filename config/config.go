package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the TOML-backed configuration for the wrapper daemon.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	LogLevel      string `toml:"LogLevel"`

	Addresses Addresses `toml:"addresses"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Addresses carries the fixed accounts the ledger is anchored to.
type Addresses struct {
	// Wrapper is the account that custodies the base-token backing.
	Wrapper string `toml:"Wrapper"`
	// ExcessDestination receives swept surplus.
	ExcessDestination string `toml:"ExcessDestination"`
	// MigrationAdmin is the only caller allowed to authorize migrations.
	MigrationAdmin string `toml:"MigrationAdmin"`
}

// Telemetry configures the optional OTLP exporters.
type Telemetry struct {
	Enabled  bool   `toml:"Enabled"`
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./wm-data"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func parseAddress(label, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, fmt.Errorf("config: %s address missing", label)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("config: %s address %q is not a valid hex address", label, raw)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("config: %s address cannot be zero", label)
	}
	return addr, nil
}

// WrapperAddress returns the parsed wrapper custody account.
func (c *Config) WrapperAddress() (common.Address, error) {
	return parseAddress("wrapper", c.Addresses.Wrapper)
}

// ExcessDestinationAddress returns the parsed surplus destination.
func (c *Config) ExcessDestinationAddress() (common.Address, error) {
	return parseAddress("excess destination", c.Addresses.ExcessDestination)
}

// MigrationAdminAddress returns the parsed migration admin.
func (c *Config) MigrationAdminAddress() (common.Address, error) {
	return parseAddress("migration admin", c.Addresses.MigrationAdmin)
}

// Validate checks the configuration is complete enough to boot the daemon.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("config: listen address missing")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: data dir missing")
	}
	if _, err := cfg.WrapperAddress(); err != nil {
		return err
	}
	if _, err := cfg.ExcessDestinationAddress(); err != nil {
		return err
	}
	if _, err := cfg.MigrationAdminAddress(); err != nil {
		return err
	}
	if cfg.Telemetry.Enabled && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("config: telemetry enabled without endpoint")
	}
	return nil
}
