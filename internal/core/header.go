package core

import (
	"encoding/binary"

	"github.com/mdf4go/mdf4/internal/utils"
)

// TagHD is the singleton header block's tag.
const TagHD = "##HD"

// headerLinkCount is the number of links an HD block carries, in order:
// first data group, first file-history, first channel hierarchy, first
// attachment, first event, file comment.
const headerLinkCount = 6

const (
	hdLinkDataGroup = iota
	hdLinkFileHistory
	hdLinkChannelHierarchy
	hdLinkAttachment
	hdLinkEvent
	hdLinkComment
)

// Header is the decoded HD block.
type Header struct {
	FirstDataGroup uint64
	CommentLink    uint64

	StartTimeNs  int64
	TZOffsetMin  int16
	DSTOffsetMin int16
	TimeFlags    uint8
	TimeClass    uint8
	Flags        uint8
}

// ReadHeader decodes the HD block at offset.
func ReadHeader(r utils.ReaderAt, offset uint64) (*Header, error) {
	hdr, err := ReadBlockHeader(r, int64(offset))
	if err != nil {
		return nil, err
	}
	if err := hdr.ExpectTag(TagHD); err != nil {
		return nil, err
	}
	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return nil, err
	}

	h := &Header{
		FirstDataGroup: hdr.Link(hdLinkDataGroup),
		CommentLink:    hdr.Link(hdLinkComment),
	}
	if len(payload) >= 16 {
		h.StartTimeNs = int64(binary.LittleEndian.Uint64(payload[0:8]))
		h.TZOffsetMin = int16(binary.LittleEndian.Uint16(payload[8:10]))
		h.DSTOffsetMin = int16(binary.LittleEndian.Uint16(payload[10:12]))
		h.TimeFlags = payload[12]
		h.TimeClass = payload[13]
		h.Flags = payload[14]
	}
	return h, nil
}

// EncodeHeader serializes an HD block. All links besides FirstDataGroup and
// CommentLink are absent (file-history, channel hierarchy, attachment, and
// event blocks are out of scope per spec.md §1).
func EncodeHeader(h *Header) ([]byte, error) {
	links := make([]uint64, headerLinkCount)
	links[hdLinkDataGroup] = h.FirstDataGroup
	links[hdLinkComment] = h.CommentLink

	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload[0:8], uint64(h.StartTimeNs))
	binary.LittleEndian.PutUint16(payload[8:10], uint16(h.TZOffsetMin))
	binary.LittleEndian.PutUint16(payload[10:12], uint16(h.DSTOffsetMin))
	payload[12] = h.TimeFlags
	payload[13] = h.TimeClass
	payload[14] = h.Flags

	return EncodeBlock(TagHD, links, payload)
}
