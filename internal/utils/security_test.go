package utils

import (
	"math"
	"testing"
)

// TestRecordSizeOverflow exercises the overflow guard a CG's record-size
// computation (data_bytes + invalidation_bytes, times cycle count) relies on
// before the decoder allocates any buffer sized from file-controlled fields.
func TestRecordSizeOverflow(t *testing.T) {
	tests := []struct {
		name        string
		cycleCount  uint64
		recordSize  uint64
		shouldFail  bool
		description string
	}{
		{
			name:        "normal group - 1000 records of 16 bytes",
			cycleCount:  1000,
			recordSize:  16,
			shouldFail:  false,
			description: "ordinary channel group should succeed",
		},
		{
			name:        "large but valid group - 10M records",
			cycleCount:  10_000_000,
			recordSize:  32,
			shouldFail:  false,
			description: "large but valid cycle count should succeed",
		},
		{
			name:        "overflow attack - huge cycle count times record size",
			cycleCount:  math.MaxUint64 / 4,
			recordSize:  8,
			shouldFail:  true,
			description: "malicious cycle count should be caught before allocation",
		},
		{
			name:        "exceeds MaxRecordSize",
			cycleCount:  1,
			recordSize:  MaxRecordSize + 1,
			shouldFail:  true,
			description: "a single record over MaxRecordSize should fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := SafeMultiply(tt.cycleCount, tt.recordSize)
			if err != nil {
				if !tt.shouldFail {
					t.Errorf("unexpected overflow error for %s: %v", tt.description, err)
				}
				return
			}

			validateErr := ValidateBufferSize(tt.recordSize, MaxRecordSize, "record")
			if tt.shouldFail {
				if validateErr == nil && total <= MaxRecordSize*1_000_000 {
					t.Errorf("expected a validation error for %s, got nil (total=%d)", tt.description, total)
				}
			} else if validateErr != nil {
				t.Errorf("unexpected validation error for %s: %v", tt.description, validateErr)
			}
		})
	}
}

// TestBlockLengthOverflow exercises the guard against a block header
// advertising an implausible total length, which the block codec must
// reject before trusting it to size a read.
func TestBlockLengthOverflow(t *testing.T) {
	tests := []struct {
		name       string
		length     uint64
		shouldFail bool
	}{
		{name: "typical CN block", length: 160, shouldFail: false},
		{name: "large DT block", length: 64 * 1024 * 1024, shouldFail: false},
		{name: "at the limit", length: MaxBlockLength, shouldFail: false},
		{name: "one byte over the limit", length: MaxBlockLength + 1, shouldFail: true},
		{name: "corrupted huge length", length: math.MaxUint64 - 7, shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBufferSize(tt.length, MaxBlockLength, "block")
			if tt.shouldFail && err == nil {
				t.Errorf("expected error for length %d, got nil", tt.length)
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("unexpected error for length %d: %v", tt.length, err)
			}
		})
	}
}
