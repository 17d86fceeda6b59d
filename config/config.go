// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the pool ledger configuration file.
//
// The file is a flat list of "key = value" lines. Blank lines and lines
// starting with '#' are ignored, as are unknown keys. Amounts are decimal
// strings of whole units (18 decimals); addresses are base58 P2PKH strings.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of a pool ledger instance.
type Config struct {
	DataDir  string `env:"POOLSHARES_DATADIR"`
	Network  string `env:"POOLSHARES_NETWORK"`
	LogLevel string `env:"POOLSHARES_LOGLEVEL"`

	Admin    string `env:"POOLSHARES_ADMIN"`
	Treasury string `env:"POOLSHARES_TREASURY"`
	Pool     string `env:"POOLSHARES_POOL"`

	HardCap             string `env:"POOLSHARES_HARDCAP"`
	MinimumUnit         string `env:"POOLSHARES_MINIMUM_UNIT"`
	PrecisionUnit       string `env:"POOLSHARES_PRECISION_UNIT"`
	MaxSupply           string `env:"POOLSHARES_MAX_SUPPLY"`
	DistributionMinimum string `env:"POOLSHARES_DISTRIBUTION_MINIMUM"`
}

// DefaultDataDir returns ~/.poolshares, or .poolshares in the working
// directory when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".poolshares"
	}
	return filepath.Join(home, ".poolshares")
}

// DefaultConfig returns the parameters of the first public contribution:
// a 1000 unit hard cap taken in 0.2 unit steps, and a 20 unit floor on
// distribution rounds. Role addresses have no default.
func DefaultConfig() Config {
	return Config{
		DataDir:             DefaultDataDir(),
		Network:             "mainnet",
		LogLevel:            "info",
		HardCap:             "1000",
		MinimumUnit:         "0.2",
		PrecisionUnit:       "0.2",
		MaxSupply:           "0",
		DistributionMinimum: "20",
	}
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LoadConfig reads path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := parseKeyValue(line)
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		cfg.set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits on the first '='.
func parseKeyValue(line string) (string, string, bool) {
	idx := strings.IndexByte(line, '=')
	if idx <= 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	return key, value, key != ""
}

func (c *Config) set(key, value string) {
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "loglevel":
		c.LogLevel = value
	case "admin":
		c.Admin = value
	case "treasury":
		c.Treasury = value
	case "pool":
		c.Pool = value
	case "hardcap":
		c.HardCap = value
	case "minimumunit":
		c.MinimumUnit = value
	case "precisionunit":
		c.PrecisionUnit = value
	case "maxsupply":
		c.MaxSupply = value
	case "distributionminimum":
		c.DistributionMinimum = value
	}
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Pool Shares Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	b.WriteString("\n# Roles\n")
	fmt.Fprintf(&b, "admin = %s\n", cfg.Admin)
	fmt.Fprintf(&b, "treasury = %s\n", cfg.Treasury)
	fmt.Fprintf(&b, "pool = %s\n", cfg.Pool)
	b.WriteString("\n# Amounts (whole units)\n")
	fmt.Fprintf(&b, "hardcap = %s\n", cfg.HardCap)
	fmt.Fprintf(&b, "minimumunit = %s\n", cfg.MinimumUnit)
	fmt.Fprintf(&b, "precisionunit = %s\n", cfg.PrecisionUnit)
	fmt.Fprintf(&b, "maxsupply = %s\n", cfg.MaxSupply)
	fmt.Fprintf(&b, "distributionminimum = %s\n", cfg.DistributionMinimum)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields of cfg from POOLSHARES_* environment variables.
// Unset variables leave the field untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrEnv, err)
	}
	return nil
}

// Load reads the config file in dataDir, falling back to defaults when it
// does not exist, then applies environment overrides.
func Load(dataDir string) (Config, error) {
	cfg, err := LoadConfig(ConfigPath(dataDir))
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return cfg, err
	}
	if cfg.DataDir == DefaultDataDir() {
		cfg.DataDir = dataDir
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
