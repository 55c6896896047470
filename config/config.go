// Package config loads and saves BEAST's TOML configuration file: vm
// capacity caps, evaluator weights, pipeline tuning, and the API's listen
// port.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is BEAST's top-level configuration.
type Config struct {
	VM struct {
		VariableCount    int `toml:"variable_count"`
		StringTableCount int `toml:"string_table_count"`
		MaxStringSize    int `toml:"max_string_size"`
	} `toml:"vm"`

	Evaluator struct {
		DynNoopWeight  float64 `toml:"dyn_noop_weight"`
		StatNoopWeight float64 `toml:"stat_noop_weight"`
		PrgExecWeight  float64 `toml:"prg_exec_weight"`
	} `toml:"evaluator"`

	Pipeline struct {
		PopulationSize int     `toml:"population_size"`
		BufferSize     int     `toml:"buffer_size"`
		CycleQuantumMs int     `toml:"cycle_quantum_ms"`
		MutationRate   float64 `toml:"mutation_rate"`
	} `toml:"pipeline"`

	API struct {
		Port int `toml:"port"`
	} `toml:"api"`
}

// DefaultConfig returns a configuration with the values a fresh
// evolutionary run should start from.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.VM.VariableCount = 256
	cfg.VM.StringTableCount = 64
	cfg.VM.MaxStringSize = 256

	cfg.Evaluator.DynNoopWeight = 1.0
	cfg.Evaluator.StatNoopWeight = 1.0
	cfg.Evaluator.PrgExecWeight = 2.0

	cfg.Pipeline.PopulationSize = 64
	cfg.Pipeline.BufferSize = 16
	cfg.Pipeline.CycleQuantumMs = 10
	cfg.Pipeline.MutationRate = 0.02

	cfg.API.Port = 8089

	return cfg
}

// GetConfigPath returns the platform-specific default config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "beast")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "beast.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "beast")

	default:
		return "beast.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "beast.toml"
	}

	return filepath.Join(configDir, "beast.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from path, returning defaults unchanged if
// the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
