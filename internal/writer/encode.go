package writer

import (
	"encoding/binary"
	"math"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
)

// PutNumber is the inverse of decode.Plan.ExtractNumber: it writes value
// into record's byte range as dataType, byte-aligned (this library's writer
// never emits bit-packed channels; it always writes whole-byte-width
// fields, which keeps every record it produces readable by the simplest
// possible reader).
func PutNumber(record []byte, byteOffset uint32, dataType core.DataType, value float64) error {
	end := int(byteOffset)
	var order binary.ByteOrder = binary.LittleEndian
	if dataType.IsBigEndian() {
		order = binary.BigEndian
	}

	switch dataType {
	case core.DataTypeFloatLE, core.DataTypeFloatBE:
		end += 8
		if end > len(record) {
			return errs.WrapInvalidData("record encode", errShortRecord)
		}
		order.PutUint64(record[byteOffset:end], math.Float64bits(value))

	case core.DataTypeSignedLE, core.DataTypeSignedBE:
		end += 8
		if end > len(record) {
			return errs.WrapInvalidData("record encode", errShortRecord)
		}
		order.PutUint64(record[byteOffset:end], uint64(int64(value)))

	case core.DataTypeUnsignedLE, core.DataTypeUnsignedBE:
		end += 8
		if end > len(record) {
			return errs.WrapInvalidData("record encode", errShortRecord)
		}
		order.PutUint64(record[byteOffset:end], uint64(value))

	default:
		return &errs.UnsupportedFeatureError{What: "PutNumber on a non-numeric data type"}
	}
	return nil
}

// PutString writes text into record at byteOffset, encoded per dataType and
// NUL-padded (or truncated) to exactly fieldLen bytes.
func PutString(record []byte, byteOffset uint32, fieldLen int, dataType core.DataType, text string) error {
	end := int(byteOffset) + fieldLen
	if end > len(record) {
		return errs.WrapInvalidData("record encode", errShortRecord)
	}
	field := record[byteOffset:end]
	for i := range field {
		field[i] = 0
	}

	switch dataType {
	case core.DataTypeStringLatin1, core.DataTypeStringUTF8:
		copy(field, []byte(text))
	case core.DataTypeStringUTF16LE, core.DataTypeStringUTF16BE:
		bigEndian := dataType == core.DataTypeStringUTF16BE
		i := 0
		for _, r := range text {
			if i+2 > len(field) {
				break
			}
			u := uint16(r)
			if bigEndian {
				field[i], field[i+1] = byte(u>>8), byte(u)
			} else {
				field[i], field[i+1] = byte(u), byte(u>>8)
			}
			i += 2
		}
	default:
		return &errs.UnsupportedFeatureError{What: "PutString on a non-string data type"}
	}
	return nil
}

// SetInvalid sets or clears the invalidation bit for a channel within record.
func SetInvalid(record []byte, dataBytes uint32, invalidationBitPos uint32, invalid bool) error {
	idx := int(dataBytes) + int(invalidationBitPos/8)
	if idx >= len(record) {
		return errs.WrapInvalidData("record encode", errShortRecord)
	}
	bit := byte(1) << (invalidationBitPos % 8)
	if invalid {
		record[idx] |= bit
	} else {
		record[idx] &^= bit
	}
	return nil
}

var errShortRecord = shortRecordError("record buffer too small for field")

type shortRecordError string

func (e shortRecordError) Error() string { return string(e) }
