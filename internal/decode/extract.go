package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
)

// ExtractNumber pulls p's bit field out of record and returns it as a
// float64, sign-extending signed integers and reinterpreting 32/64-bit
// float-typed fields. record must be exactly p.RecordSize bytes.
func (p *Plan) ExtractNumber(record []byte) (float64, error) {
	if p.DataType.IsString() || p.DataType == core.DataTypeByteArray {
		return 0, &errs.InvalidStateError{Context: "ExtractNumber called on a string/byte-array channel"}
	}
	if uint64(len(record)) < p.RecordSize {
		return 0, errs.WrapInvalidData("record extraction", fmt.Errorf("record is %d bytes, want %d", len(record), p.RecordSize))
	}

	raw, err := extractBits(record, p.ByteOffset, p.BitOffset, p.BitCount, p.DataType.IsBigEndian())
	if err != nil {
		return 0, err
	}

	switch {
	case p.DataType.IsFloat():
		switch p.BitCount {
		case 32:
			return float64(math.Float32frombits(uint32(raw))), nil
		case 64:
			return math.Float64frombits(raw), nil
		default:
			return 0, errs.WrapInvalidData("record extraction", fmt.Errorf("float channel has unsupported bit count %d", p.BitCount))
		}
	case p.DataType.IsSigned():
		return float64(signExtend(raw, p.BitCount)), nil
	default:
		return float64(raw), nil
	}
}

// ExtractString decodes p's byte range as text per its charset. record must
// be exactly p.RecordSize bytes.
func (p *Plan) ExtractString(record []byte) (string, error) {
	if !p.DataType.IsString() {
		return "", &errs.InvalidStateError{Context: "ExtractString called on a non-string channel"}
	}
	if uint64(len(record)) < p.RecordSize {
		return "", errs.WrapInvalidData("record extraction", fmt.Errorf("record is %d bytes, want %d", len(record), p.RecordSize))
	}
	byteLen := (uint64(p.BitOffset) + uint64(p.BitCount) + 7) / 8
	field := record[p.ByteOffset : uint64(p.ByteOffset)+byteLen]
	return decodeString(field, p.DataType)
}

// ExtractBytes returns the raw byte-array field, a copy so callers may
// retain it past the lifetime of record's backing buffer.
func (p *Plan) ExtractBytes(record []byte) ([]byte, error) {
	if p.DataType != core.DataTypeByteArray {
		return nil, &errs.InvalidStateError{Context: "ExtractBytes called on a non-byte-array channel"}
	}
	if uint64(len(record)) < p.RecordSize {
		return nil, errs.WrapInvalidData("record extraction", fmt.Errorf("record is %d bytes, want %d", len(record), p.RecordSize))
	}
	byteLen := (uint64(p.BitOffset) + uint64(p.BitCount) + 7) / 8
	out := make([]byte, byteLen)
	copy(out, record[p.ByteOffset:uint64(p.ByteOffset)+byteLen])
	return out, nil
}

// extractBits reads bitCount bits starting at byteOffset*8+bitOffset and
// returns them right-aligned in a uint64. bitCount must be <= 64.
func extractBits(record []byte, byteOffset uint32, bitOffset uint8, bitCount uint32, bigEndian bool) (uint64, error) {
	if bitCount > 64 {
		return 0, errs.WrapInvalidData("bit extraction", fmt.Errorf("bit count %d exceeds 64", bitCount))
	}
	byteLen := (uint64(bitOffset) + uint64(bitCount) + 7) / 8
	if uint64(byteOffset)+byteLen > uint64(len(record)) {
		return 0, errs.WrapInvalidData("bit extraction", fmt.Errorf("field [%d,%d) exceeds record length %d", byteOffset, uint64(byteOffset)+byteLen, len(record)))
	}
	field := record[byteOffset : uint64(byteOffset)+byteLen]

	// Byte-aligned fast path covering the common 8/16/32/64-bit case.
	if bitOffset == 0 && bitCount%8 == 0 {
		var order binary.ByteOrder = binary.LittleEndian
		if bigEndian {
			order = binary.BigEndian
		}
		return readAligned(field, order)
	}

	// Bit-packed general path: assemble the field as a little-endian (or
	// byte-reversed for big-endian storage) integer, then shift/mask.
	buf := make([]byte, len(field))
	copy(buf, field)
	if bigEndian {
		reverseInPlace(buf)
	}
	var acc uint64
	for i := len(buf) - 1; i >= 0; i-- {
		acc = acc<<8 | uint64(buf[i])
	}
	acc >>= uint64(bitOffset)
	if bitCount < 64 {
		acc &= (uint64(1) << bitCount) - 1
	}
	return acc, nil
}

func readAligned(field []byte, order binary.ByteOrder) (uint64, error) {
	switch len(field) {
	case 1:
		return uint64(field[0]), nil
	case 2:
		return uint64(order.Uint16(field)), nil
	case 4:
		return uint64(order.Uint32(field)), nil
	case 8:
		return order.Uint64(field), nil
	default:
		// Non-power-of-two aligned width (e.g. 24-bit): assemble manually.
		var acc uint64
		if order == binary.BigEndian {
			for _, b := range field {
				acc = acc<<8 | uint64(b)
			}
		} else {
			for i := len(field) - 1; i >= 0; i-- {
				acc = acc<<8 | uint64(field[i])
			}
		}
		return acc, nil
	}
}

func reverseInPlace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// signExtend interprets the low bitCount bits of raw as a two's-complement
// signed integer.
func signExtend(raw uint64, bitCount uint32) int64 {
	if bitCount >= 64 {
		return int64(raw)
	}
	signBit := uint64(1) << (bitCount - 1)
	if raw&signBit != 0 {
		return int64(raw | (^uint64(0) << bitCount))
	}
	return int64(raw)
}
