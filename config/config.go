// Package config holds the node configuration, read from a TOML file and
// overridden by command line flags.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/naoina/toml"
)

const (
	SettlementLedger = "ledger"
	SettlementToken  = "token"

	RegistryStatic   = "static"
	RegistryContract = "contract"
)

// Duration is a time.Duration read from strings like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the configuration of a qfnode.
type Config struct {
	DataDir  string         `toml:"datadir" validate:"required"`
	Log      LogConfig      `toml:"log"`
	API      APIConfig      `toml:"api"`
	Runner   RunnerConfig   `toml:"runner"`
	Payouts  PayoutsConfig  `toml:"payouts"`
	Registry RegistryConfig `toml:"registry"`
	Web3     Web3Config     `toml:"web3"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Output string `toml:"output" validate:"required"`
}

type APIConfig struct {
	Host string `toml:"host" validate:"required"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// RunnerConfig configures the background batch verification.
type RunnerConfig struct {
	Enabled      bool     `toml:"enabled"`
	BatchSize    uint32   `toml:"batch-size" validate:"gt=0"`
	Interval     Duration `toml:"interval" validate:"gt=0"`
	AutoFinalize bool     `toml:"auto-finalize"`
}

// PayoutsConfig configures the settlement of claimed allocations.
type PayoutsConfig struct {
	Enabled    bool     `toml:"enabled"`
	Settlement string   `toml:"settlement" validate:"oneof=ledger token"`
	Interval   Duration `toml:"interval" validate:"gt=0"`
}

// RegistryConfig selects where recipients are resolved.
type RegistryConfig struct {
	Source string `toml:"source" validate:"oneof=static contract"`
	// Round window passed to the registry contract.
	StartTime int64 `toml:"start-time" validate:"gte=0"`
	EndTime   int64 `toml:"end-time" validate:"gtefield=StartTime"`
}

// Web3Config holds the chain endpoint and contracts.
type Web3Config struct {
	RPC        string `toml:"rpc" validate:"omitempty,url"`
	PrivateKey string `toml:"private-key" validate:"omitempty,hexadecimal"`
	Token      string `toml:"token" validate:"omitempty,eth_addr"`
	Registry   string `toml:"registry" validate:"omitempty,eth_addr"`
	GasLimit   uint64 `toml:"gas-limit"`
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir: filepath.Join(home, ".qftally"),
		Log:     LogConfig{Level: "info", Output: "stdout"},
		API:     APIConfig{Host: "0.0.0.0", Port: 9090},
		Runner: RunnerConfig{
			Enabled:   true,
			BatchSize: 25,
			Interval:  Duration{5 * time.Second},
		},
		Payouts: PayoutsConfig{
			Enabled:    true,
			Settlement: SettlementLedger,
			Interval:   Duration{5 * time.Second},
		},
		Registry: RegistryConfig{Source: RegistryStatic},
	}
}

// Load reads the TOML file at path over the default configuration and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores the configuration as TOML at path.
func (c *Config) Write(path string) error {
	raw, err := toml.Marshal(*c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}

// Print writes the configuration as TOML to w, hiding the private key.
func (c *Config) Print(w io.Writer) error {
	shown := *c
	if shown.Web3.PrivateKey != "" {
		shown.Web3.PrivateKey = "hidden"
	}
	raw, err := toml.Marshal(shown)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(raw)
	return err
}

// Validate checks the configuration and expands the data directory.
func (c *Config) Validate() error {
	if strings.HasPrefix(c.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, c.DataDir[2:])
		}
	}
	validate := validator.New()
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		return int64(v.Interface().(Duration).Duration)
	}, Duration{})
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Payouts.Enabled && c.Payouts.Settlement == SettlementToken {
		if c.Web3.RPC == "" || c.Web3.Token == "" || c.Web3.PrivateKey == "" {
			return fmt.Errorf("invalid config: token settlement needs web3 rpc, token and private key")
		}
	}
	if c.Registry.Source == RegistryContract && (c.Web3.RPC == "" || c.Web3.Registry == "") {
		return fmt.Errorf("invalid config: contract registry needs web3 rpc and registry address")
	}
	return nil
}

// UsesWeb3 reports whether the node needs a web3 connection.
func (c *Config) UsesWeb3() bool {
	return (c.Payouts.Enabled && c.Payouts.Settlement == SettlementToken) ||
		c.Registry.Source == RegistryContract
}
