package core

import (
	"encoding/binary"
	"fmt"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagCN is the channel block's tag.
const TagCN = "##CN"

const cnLinkCount = 8

const (
	cnLinkNext = iota
	cnLinkComposition
	cnLinkName
	cnLinkSource
	cnLinkConversion
	cnLinkData
	cnLinkUnit
	cnLinkComment
)

// ChannelType identifies how a channel's bytes relate to the record.
type ChannelType uint8

const (
	ChannelTypeFixedLength ChannelType = iota
	ChannelTypeVirtualMaster
	ChannelTypeVariableLength
	ChannelTypeMaster
)

// SyncType identifies a master channel's x-axis semantic.
type SyncType uint8

const (
	SyncTypeNone SyncType = iota
	SyncTypeTime
	SyncTypeAngle
	SyncTypeDistance
	SyncTypeIndex
)

// DataType is the enumerated tag of §3's Data Type table.
type DataType uint8

const (
	DataTypeUnsignedLE DataType = iota
	DataTypeUnsignedBE
	DataTypeSignedLE
	DataTypeSignedBE
	DataTypeFloatLE
	DataTypeFloatBE
	DataTypeStringLatin1
	DataTypeStringUTF8
	DataTypeStringUTF16LE
	DataTypeStringUTF16BE
	DataTypeByteArray
)

// IsString reports whether dt is one of the four string encodings.
func (dt DataType) IsString() bool {
	switch dt {
	case DataTypeStringLatin1, DataTypeStringUTF8, DataTypeStringUTF16LE, DataTypeStringUTF16BE:
		return true
	}
	return false
}

// IsFloat reports whether dt is FloatLE or FloatBE.
func (dt DataType) IsFloat() bool {
	return dt == DataTypeFloatLE || dt == DataTypeFloatBE
}

// IsSigned reports whether dt is a signed integer type.
func (dt DataType) IsSigned() bool {
	return dt == DataTypeSignedLE || dt == DataTypeSignedBE
}

// IsBigEndian reports whether dt stores multi-byte values big-endian.
func (dt DataType) IsBigEndian() bool {
	return dt == DataTypeUnsignedBE || dt == DataTypeSignedBE || dt == DataTypeFloatBE || dt == DataTypeStringUTF16BE
}

// ChannelFlagInvalidationBitValid marks that InvalidationBitPos is meaningful.
const ChannelFlagInvalidationBitValid = 1 << 0

// Channel is the decoded CN block.
type Channel struct {
	Offset uint64

	Next        uint64
	Composition uint64
	NameLink    uint64
	SourceLink  uint64
	Conversion  uint64
	DataLink    uint64
	UnitLink    uint64
	CommentLink uint64

	ChannelType        ChannelType
	SyncType           SyncType
	DataType           DataType
	BitOffset          uint8 // 0..7
	ByteOffset         uint32
	BitCount           uint32
	Flags              uint32
	InvalidationBitPos uint32
}

// HasValidInvalidationBit reports whether InvalidationBitPos should be honored.
func (c *Channel) HasValidInvalidationBit() bool {
	return c.Flags&ChannelFlagInvalidationBitValid != 0
}

// ReadChannel decodes the CN block at offset.
func ReadChannel(r utils.ReaderAt, offset uint64) (*Channel, error) {
	hdr, err := ReadBlockHeader(r, int64(offset))
	if err != nil {
		return nil, err
	}
	if err := hdr.ExpectTag(TagCN); err != nil {
		return nil, err
	}
	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return nil, err
	}
	if len(payload) < 20 {
		return nil, errs.WrapInvalidData("CN payload", fmt.Errorf("payload too short: %d bytes", len(payload)))
	}

	c := &Channel{
		Offset:             offset,
		Next:               hdr.Link(cnLinkNext),
		Composition:        hdr.Link(cnLinkComposition),
		NameLink:           hdr.Link(cnLinkName),
		SourceLink:         hdr.Link(cnLinkSource),
		Conversion:         hdr.Link(cnLinkConversion),
		DataLink:           hdr.Link(cnLinkData),
		UnitLink:           hdr.Link(cnLinkUnit),
		CommentLink:        hdr.Link(cnLinkComment),
		ChannelType:        ChannelType(payload[0]),
		SyncType:           SyncType(payload[1]),
		DataType:           DataType(payload[2]),
		BitOffset:          payload[3],
		ByteOffset:         binary.LittleEndian.Uint32(payload[4:8]),
		BitCount:           binary.LittleEndian.Uint32(payload[8:12]),
		Flags:              binary.LittleEndian.Uint32(payload[12:16]),
		InvalidationBitPos: binary.LittleEndian.Uint32(payload[16:20]),
	}
	if c.BitOffset > 7 {
		return nil, errs.WrapInvalidData("CN payload", fmt.Errorf("bit offset %d out of range 0..7", c.BitOffset))
	}
	return c, nil
}

// EncodeChannel serializes a CN block.
func EncodeChannel(c *Channel) ([]byte, error) {
	links := make([]uint64, cnLinkCount)
	links[cnLinkNext] = c.Next
	links[cnLinkComposition] = c.Composition
	links[cnLinkName] = c.NameLink
	links[cnLinkSource] = c.SourceLink
	links[cnLinkConversion] = c.Conversion
	links[cnLinkData] = c.DataLink
	links[cnLinkUnit] = c.UnitLink
	links[cnLinkComment] = c.CommentLink

	payload := make([]byte, 24)
	payload[0] = byte(c.ChannelType)
	payload[1] = byte(c.SyncType)
	payload[2] = byte(c.DataType)
	payload[3] = c.BitOffset
	binary.LittleEndian.PutUint32(payload[4:8], c.ByteOffset)
	binary.LittleEndian.PutUint32(payload[8:12], c.BitCount)
	binary.LittleEndian.PutUint32(payload[12:16], c.Flags)
	binary.LittleEndian.PutUint32(payload[16:20], c.InvalidationBitPos)

	return EncodeBlock(TagCN, links, payload)
}
