package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow reports whether multiplying two uint64 values would overflow.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil
	}

	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two uint64 values, returning an error instead of wrapping.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// Common block/record size limits used to reject obviously corrupt length fields
// before allocating buffers for them.
const (
	// MaxBlockLength rejects a block claiming to be larger than 4GiB; no MDF4
	// block type emitted by this library is ever that large.
	MaxBlockLength = 4 * 1024 * 1024 * 1024

	// MaxRecordSize rejects a channel group record size larger than 16MiB.
	MaxRecordSize = 16 * 1024 * 1024
)

// ValidateBufferSize validates that a size is within [1, maxSize].
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size == 0 {
		return fmt.Errorf("%s: size cannot be zero", description)
	}

	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}

	return nil
}
