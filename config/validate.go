// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Resolved is a Config with addresses and amounts decoded.
type Resolved struct {
	Admin    units.Address
	Treasury units.Address
	Pool     units.Address

	HardCap             uint256.Int
	MinimumUnit         uint256.Int
	PrecisionUnit       uint256.Int
	MaxSupply           uint256.Int // zero means unbounded
	DistributionMinimum uint256.Int

	Mainnet bool
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	_, err := cfg.Resolve()
	return err
}

// Resolve validates cfg and decodes its addresses and amounts.
func (c Config) Resolve() (Resolved, error) {
	var r Resolved

	if c.DataDir == "" {
		return r, ErrEmptyDataDir
	}
	if c.Network != "mainnet" && c.Network != "testnet" && c.Network != "regtest" {
		return r, ErrInvalidNetwork
	}
	r.Mainnet = c.Network == "mainnet"
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return r, ErrInvalidLogLevel
	}

	var err error
	if r.Admin, err = parseRole("admin", c.Admin); err != nil {
		return r, err
	}
	if r.Treasury, err = parseRole("treasury", c.Treasury); err != nil {
		return r, err
	}
	if r.Pool, err = parseRole("pool", c.Pool); err != nil {
		return r, err
	}

	amounts := []struct {
		name    string
		value   string
		dst     *uint256.Int
		nonZero bool
	}{
		{"hardcap", c.HardCap, &r.HardCap, true},
		{"minimumunit", c.MinimumUnit, &r.MinimumUnit, true},
		{"precisionunit", c.PrecisionUnit, &r.PrecisionUnit, false},
		{"maxsupply", c.MaxSupply, &r.MaxSupply, false},
		{"distributionminimum", c.DistributionMinimum, &r.DistributionMinimum, false},
	}
	for _, a := range amounts {
		v, err := units.ParseUnits(a.value, units.Decimals)
		if err != nil {
			return r, fmt.Errorf("%w: %s: %w", ErrInvalidAmount, a.name, err)
		}
		if a.nonZero && v.IsZero() {
			return r, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, a.name)
		}
		*a.dst = v
	}

	var rem uint256.Int
	if rem.Mod(&r.HardCap, &r.MinimumUnit); !rem.IsZero() {
		return r, fmt.Errorf("%w: hardcap %s is not a multiple of minimumunit %s",
			ErrInvalidAmount, c.HardCap, c.MinimumUnit)
	}
	return r, nil
}

func parseRole(name, value string) (units.Address, error) {
	if value == "" {
		return units.Address{}, fmt.Errorf("%w: %s", ErrMissingAddress, name)
	}
	a, err := units.ParseAddress(value)
	if err != nil {
		return units.Address{}, fmt.Errorf("%w: %s: %w", ErrInvalidAddress, name, err)
	}
	return a, nil
}
