package core

import (
	"encoding/binary"
	"fmt"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagCG is the channel group block's tag.
const TagCG = "##CG"

const cgLinkCount = 6

const (
	cgLinkNext = iota
	cgLinkFirstChannel
	cgLinkAcqName
	cgLinkAcqSource
	cgLinkFirstSampleReduction
	cgLinkMetadata
)

// ChannelGroupFlagVLSD marks a CG whose record layout stores variable-length data.
// Not produced by this library's writer but recognized while walking.
const ChannelGroupFlagVLSD = 1 << 0

// ChannelGroup is the decoded CG block: a record layout shared by a set of channels.
type ChannelGroup struct {
	Offset uint64

	Next                uint64
	FirstChannel         uint64
	AcqNameLink          uint64
	AcqSourceLink        uint64
	FirstSampleReduction uint64
	Metadata             uint64

	RecordID          uint64
	CycleCount        uint64
	DataBytes         uint32
	InvalidationBytes uint32
	Flags             uint16
}

// RecordSize is data_bytes + invalidation_bytes (§3 CG invariant).
func (cg *ChannelGroup) RecordSize() uint64 {
	return uint64(cg.DataBytes) + uint64(cg.InvalidationBytes)
}

// ReadChannelGroup decodes the CG block at offset.
func ReadChannelGroup(r utils.ReaderAt, offset uint64) (*ChannelGroup, error) {
	hdr, err := ReadBlockHeader(r, int64(offset))
	if err != nil {
		return nil, err
	}
	if err := hdr.ExpectTag(TagCG); err != nil {
		return nil, err
	}
	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return nil, err
	}
	if len(payload) < 26 {
		return nil, errs.WrapInvalidData("CG payload", fmt.Errorf("payload too short: %d bytes", len(payload)))
	}

	cg := &ChannelGroup{
		Offset:               offset,
		Next:                 hdr.Link(cgLinkNext),
		FirstChannel:         hdr.Link(cgLinkFirstChannel),
		AcqNameLink:          hdr.Link(cgLinkAcqName),
		AcqSourceLink:        hdr.Link(cgLinkAcqSource),
		FirstSampleReduction: hdr.Link(cgLinkFirstSampleReduction),
		Metadata:             hdr.Link(cgLinkMetadata),
		RecordID:             binary.LittleEndian.Uint64(payload[0:8]),
		CycleCount:           binary.LittleEndian.Uint64(payload[8:16]),
		DataBytes:            binary.LittleEndian.Uint32(payload[16:20]),
		InvalidationBytes:    binary.LittleEndian.Uint32(payload[20:24]),
		Flags:                binary.LittleEndian.Uint16(payload[24:26]),
	}
	return cg, nil
}

// EncodeChannelGroup serializes a CG block.
func EncodeChannelGroup(cg *ChannelGroup) ([]byte, error) {
	links := make([]uint64, cgLinkCount)
	links[cgLinkNext] = cg.Next
	links[cgLinkFirstChannel] = cg.FirstChannel
	links[cgLinkAcqName] = cg.AcqNameLink
	links[cgLinkAcqSource] = cg.AcqSourceLink
	links[cgLinkFirstSampleReduction] = cg.FirstSampleReduction
	links[cgLinkMetadata] = cg.Metadata

	payload := make([]byte, 32)
	binary.LittleEndian.PutUint64(payload[0:8], cg.RecordID)
	binary.LittleEndian.PutUint64(payload[8:16], cg.CycleCount)
	binary.LittleEndian.PutUint32(payload[16:20], cg.DataBytes)
	binary.LittleEndian.PutUint32(payload[20:24], cg.InvalidationBytes)
	binary.LittleEndian.PutUint16(payload[24:26], cg.Flags)

	return EncodeBlock(TagCG, links, payload)
}
