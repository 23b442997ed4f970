// Package safe provides helpers for safe numeric conversions with overflow checks.
package safe

import "fmt"

// Uint64 converts a signed integer to uint64, rejecting negative values.
func Uint64[T ~int | ~int32 | ~int64](v T) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("value %d out of uint64 range", v)
	}
	return uint64(v), nil
}

// Height derives the height of a block from the chain tip and the number of
// confirmations of a transaction included in it.
func Height(tip int64, confirmations uint64) (uint64, error) {
	top, err := Uint64(tip)
	if err != nil {
		return 0, fmt.Errorf("tip: %w", err)
	}
	if confirmations == 0 || confirmations > top+1 {
		return 0, fmt.Errorf("%d confirmations inconsistent with tip %d", confirmations, tip)
	}
	return top - confirmations + 1, nil
}
