package rebalance

import "errors"

var (
	// ErrPriceUnavailable is returned when a required symbol has no usable
	// (positive) price. The wrapped message names the symbol. A partial
	// drift computation could recommend incorrect trades for the remaining
	// symbols, so the whole request fails instead of skipping the symbol.
	ErrPriceUnavailable = errors.New("rebalance: price unavailable")

	// ErrInvalidSnapshot is returned for malformed input that upstream
	// validation should have caught: duplicate or empty symbols, negative
	// shares, target allocations not summing to 100.
	ErrInvalidSnapshot = errors.New("rebalance: invalid snapshot")

	// ErrInvalidConfig is returned for malformed configuration: negative
	// tolerance, negative minimum trade amount, or bad fee parameters.
	ErrInvalidConfig = errors.New("rebalance: invalid configuration")
)
