// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"testnet\", or \"regtest\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrMissingAddress indicates a required role address (admin, treasury, pool) is unset.
	ErrMissingAddress = errors.New("config: required address is not set")

	// ErrInvalidAddress indicates a role address does not decode.
	ErrInvalidAddress = errors.New("config: invalid address")

	// ErrInvalidAmount indicates an amount value does not parse or is out of range.
	ErrInvalidAmount = errors.New("config: invalid amount")

	// ErrEnv indicates environment overrides could not be applied.
	ErrEnv = errors.New("config: invalid environment override")
)
