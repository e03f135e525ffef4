package core

import (
	"errors"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagSI is the source information block's tag. Source blocks are a
// supplemented feature (see SPEC_FULL.md): the distilled spec never
// mentions channel provenance, but every real MDF4 writer emits them and a
// reader that ignores SI can't tell a CAN signal from a bus-logging trace.
const TagSI = "##SI"

const siLinkCount = 3

const (
	siLinkName = iota
	siLinkPath
	siLinkComment
)

// SourceType enumerates the origin of a channel's acquisition.
type SourceType uint8

const (
	SourceTypeOther SourceType = iota
	SourceTypeECU
	SourceTypeBus
	SourceTypeIO
	SourceTypeTool
	SourceTypeUser
)

// BusType enumerates the bus a Bus-typed source was captured from.
type BusType uint8

const (
	BusTypeNone BusType = iota
	BusTypeOther
	BusTypeCAN
	BusTypeLIN
	BusTypeMOST
	BusTypeFlexray
	BusTypeKLine
	BusTypeEthernet
	BusTypeUSB
)

// Source is the decoded SI block.
type Source struct {
	Offset uint64

	NameLink    uint64
	PathLink    uint64
	CommentLink uint64

	SourceType SourceType
	BusType    BusType
	Flags      uint8
}

// ReadSource decodes the SI block at offset.
func ReadSource(r utils.ReaderAt, offset uint64) (*Source, error) {
	hdr, err := ReadBlockHeader(r, int64(offset))
	if err != nil {
		return nil, err
	}
	if err := hdr.ExpectTag(TagSI); err != nil {
		return nil, err
	}
	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return nil, err
	}

	s := &Source{
		Offset:      offset,
		NameLink:    hdr.Link(siLinkName),
		PathLink:    hdr.Link(siLinkPath),
		CommentLink: hdr.Link(siLinkComment),
	}
	if len(payload) >= 3 {
		s.SourceType = SourceType(payload[0])
		s.BusType = BusType(payload[1])
		s.Flags = payload[2]
	}
	return s, nil
}

// EncodeSource serializes an SI block.
func EncodeSource(s *Source) ([]byte, error) {
	if s == nil {
		return nil, errs.WrapInvalidData("SI encode", errors.New("nil source"))
	}
	links := make([]uint64, siLinkCount)
	links[siLinkName] = s.NameLink
	links[siLinkPath] = s.PathLink
	links[siLinkComment] = s.CommentLink

	payload := []byte{byte(s.SourceType), byte(s.BusType), s.Flags}
	return EncodeBlock(TagSI, links, payload)
}
