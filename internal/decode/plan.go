// Package decode implements the §6 record decoder: computing a per-channel
// bit-accurate extraction plan from a CN/CG pair, pulling raw values and
// invalidation flags out of fixed-length record bytes, and iterating
// records lazily across a channel group's data fragments. It is grounded on
// the teacher's compound/bitfield dataset reader (internal/core/dataset_reader*.go
// in the source repo), generalized from HDF5 compound member layout to
// MDF4's byte_offset*8+bit_offset addressing.
package decode

import (
	"fmt"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
)

// Plan is the resolved extraction geometry for one channel within its
// channel group's fixed-size record.
type Plan struct {
	ByteOffset uint32
	BitOffset  uint8
	BitCount   uint32
	DataType   core.DataType

	RecordSize        uint64
	DataBytes         uint32
	InvalidationBytes uint32

	HasInvalidationBit bool
	InvalidationBitPos uint32
}

// BuildPlan validates cn against cg's record geometry and returns the plan
// used by ExtractNumber/ExtractString/ExtractBytes/IsInvalid.
func BuildPlan(cn *core.Channel, cg *core.ChannelGroup) (*Plan, error) {
	p := &Plan{
		ByteOffset:         cn.ByteOffset,
		BitOffset:          cn.BitOffset,
		BitCount:           cn.BitCount,
		DataType:           cn.DataType,
		RecordSize:         cg.RecordSize(),
		DataBytes:          cg.DataBytes,
		InvalidationBytes:  cg.InvalidationBytes,
		HasInvalidationBit: cn.HasValidInvalidationBit(),
		InvalidationBitPos: cn.InvalidationBitPos,
	}

	if p.BitCount == 0 {
		return nil, errs.WrapInvalidData("channel extraction plan", fmt.Errorf("channel %q has zero bit count", cn.Offset))
	}

	endBit := uint64(p.ByteOffset)*8 + uint64(p.BitOffset) + uint64(p.BitCount)
	if !p.DataType.IsString() && p.DataType != core.DataTypeByteArray {
		if endBit > uint64(p.DataBytes)*8 {
			return nil, errs.WrapInvalidData("channel extraction plan",
				fmt.Errorf("channel bit range [%d,%d) exceeds record data region of %d bytes", uint64(p.ByteOffset)*8+uint64(p.BitOffset), endBit, p.DataBytes))
		}
	} else {
		byteLen := (uint64(p.BitOffset) + uint64(p.BitCount) + 7) / 8
		if uint64(p.ByteOffset)+byteLen > uint64(p.DataBytes) {
			return nil, errs.WrapInvalidData("channel extraction plan",
				fmt.Errorf("channel byte range [%d,%d) exceeds record data region of %d bytes", p.ByteOffset, uint64(p.ByteOffset)+byteLen, p.DataBytes))
		}
	}

	if p.HasInvalidationBit {
		bytePos := p.InvalidationBitPos / 8
		if uint32(p.DataBytes)+bytePos >= uint32(p.RecordSize) {
			return nil, errs.WrapInvalidData("channel extraction plan",
				fmt.Errorf("invalidation bit position %d falls outside the %d-byte invalidation region", p.InvalidationBitPos, p.InvalidationBytes))
		}
	}
	return p, nil
}

// IsInvalid reports whether record's invalidation bit for this channel is set.
// record must be exactly RecordSize bytes.
func (p *Plan) IsInvalid(record []byte) bool {
	if !p.HasInvalidationBit {
		return false
	}
	idx := int(p.DataBytes) + int(p.InvalidationBitPos/8)
	if idx >= len(record) {
		return false
	}
	bit := p.InvalidationBitPos % 8
	return record[idx]&(1<<bit) != 0
}
