package core

import (
	"fmt"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagDG is the data group block's tag.
const TagDG = "##DG"

const dgLinkCount = 4

const (
	dgLinkNext = iota
	dgLinkFirstChannelGroup
	dgLinkData // DT or DL
	dgLinkMetadata
)

// DataGroup is the decoded DG block: a linked-list node over a data block
// shared by one or more channel groups.
type DataGroup struct {
	Offset uint64

	Next              uint64
	FirstChannelGroup uint64
	Data              uint64
	Metadata          uint64

	RecordIDSize uint8 // 0..8; 0 means "one CG per DG, no embedded id"
}

// ReadDataGroup decodes the DG block at offset.
func ReadDataGroup(r utils.ReaderAt, offset uint64) (*DataGroup, error) {
	hdr, err := ReadBlockHeader(r, int64(offset))
	if err != nil {
		return nil, err
	}
	if err := hdr.ExpectTag(TagDG); err != nil {
		return nil, err
	}
	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 {
		return nil, errs.WrapInvalidData("DG payload", fmt.Errorf("payload too short: %d bytes", len(payload)))
	}
	recIDSize := payload[0]
	if recIDSize > 8 {
		return nil, errs.WrapInvalidData("DG payload", fmt.Errorf("record id length %d exceeds 8", recIDSize))
	}

	return &DataGroup{
		Offset:            offset,
		Next:              hdr.Link(dgLinkNext),
		FirstChannelGroup: hdr.Link(dgLinkFirstChannelGroup),
		Data:              hdr.Link(dgLinkData),
		Metadata:          hdr.Link(dgLinkMetadata),
		RecordIDSize:      recIDSize,
	}, nil
}

// EncodeDataGroup serializes a DG block (links are filled in by the writer
// once the channel group and data block addresses are known).
func EncodeDataGroup(dg *DataGroup) ([]byte, error) {
	links := make([]uint64, dgLinkCount)
	links[dgLinkNext] = dg.Next
	links[dgLinkFirstChannelGroup] = dg.FirstChannelGroup
	links[dgLinkData] = dg.Data
	links[dgLinkMetadata] = dg.Metadata

	payload := make([]byte, 8)
	payload[0] = dg.RecordIDSize

	return EncodeBlock(TagDG, links, payload)
}
