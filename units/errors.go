package units

import "errors"

var (
	// ErrInvalidAddress indicates an address string or hash could not be decoded.
	ErrInvalidAddress = errors.New("units: invalid address")

	// ErrInvalidAmount indicates an amount string is not a decimal number.
	ErrInvalidAmount = errors.New("units: invalid amount")

	// ErrNegativeAmount indicates a negative amount was supplied.
	ErrNegativeAmount = errors.New("units: negative amount")

	// ErrTooPrecise indicates an amount has more fractional digits than the unit allows.
	ErrTooPrecise = errors.New("units: amount finer than smallest unit")

	// ErrAmountOverflow indicates an amount does not fit in 256 bits.
	ErrAmountOverflow = errors.New("units: amount overflows 256 bits")
)
