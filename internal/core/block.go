// Package core implements the block-level reading and writing machinery of
// the MDF4 format: the block header codec, the TX/MD text reader, the raw
// block structs (ID, HD, DG, CG, CN, CC, SI), and the file walker that
// follows links into a raw tree. Record decoding and value conversion live
// in sibling packages (internal/decode, internal/convert); this package
// only ever deals in block offsets and typed payload structs.
package core

import (
	"encoding/binary"
	"fmt"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// blockHeaderSize is the fixed envelope before the link array: a 4-byte
// tag, a 4-byte reserved field, an 8-byte total length, and an 8-byte
// link count.
const blockHeaderSize = 24

// BlockHeaderSize is blockHeaderSize exported for callers (the writer) that
// need to compute a link field's absolute file offset without re-reading
// the block.
const BlockHeaderSize = blockHeaderSize

// Align8 rounds n up to the next multiple of 8.
func Align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// BlockHeader is the decoded envelope shared by every MDF4 block: its tag,
// its total on-disk length (including header), its link array, and the
// file offset where its tag-specific payload begins.
type BlockHeader struct {
	Tag           string
	Length        uint64
	Links         []uint64
	PayloadOffset int64
}

// ReadBlockHeader decodes the header at offset. The link count is trusted
// from the header itself (§4.A): the links array is read as exactly that
// many 8-byte absolute offsets immediately following the header.
func ReadBlockHeader(r utils.ReaderAt, offset int64) (*BlockHeader, error) {
	if offset < 0 {
		return nil, errs.WrapInvalidData("block header", fmt.Errorf("negative offset %d", offset))
	}

	buf := utils.GetBuffer(blockHeaderSize)
	defer utils.ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return nil, errs.WrapIO(fmt.Sprintf("reading block header at %d", offset), err)
	}

	tag := string(buf[0:4])
	if len(tag) < 2 || tag[0:2] != "##" {
		return nil, &errs.InvalidBlockError{Expected: []string{"## ..."}, Found: tag, Offset: offset}
	}

	length := binary.LittleEndian.Uint64(buf[8:16])
	if err := utils.ValidateBufferSize(length, utils.MaxBlockLength, "block length"); err != nil {
		return nil, errs.WrapInvalidData(fmt.Sprintf("block at offset %d", offset), err)
	}
	if length < blockHeaderSize {
		return nil, errs.WrapInvalidData(fmt.Sprintf("block at offset %d", offset),
			fmt.Errorf("length %d shorter than header", length))
	}

	linkCount := binary.LittleEndian.Uint64(buf[16:24])
	linksSize, err := utils.SafeMultiply(linkCount, 8)
	if err != nil {
		return nil, errs.WrapInvalidData(fmt.Sprintf("block at offset %d", offset), err)
	}

	links := make([]uint64, linkCount)
	if linkCount > 0 {
		linkBuf := utils.GetBuffer(int(linksSize))
		defer utils.ReleaseBuffer(linkBuf)

		if _, err := r.ReadAt(linkBuf, offset+blockHeaderSize); err != nil {
			return nil, errs.WrapIO(fmt.Sprintf("reading links of block at %d", offset), err)
		}
		for i := range links {
			links[i] = binary.LittleEndian.Uint64(linkBuf[i*8 : i*8+8])
		}
	}

	return &BlockHeader{
		Tag:           tag,
		Length:        length,
		Links:         links,
		PayloadOffset: offset + blockHeaderSize + int64(linksSize),
	}, nil
}

// ExpectTag returns InvalidBlockError unless the header's tag is one of expected.
func (h *BlockHeader) ExpectTag(expected ...string) error {
	for _, e := range expected {
		if h.Tag == e {
			return nil
		}
	}
	return &errs.InvalidBlockError{Expected: expected, Found: h.Tag, Offset: h.PayloadOffset - blockHeaderSize - int64(len(h.Links))*8}
}

// PayloadSize returns the number of payload bytes implied by Length.
func (h *BlockHeader) PayloadSize() uint64 {
	used := uint64(blockHeaderSize) + uint64(len(h.Links))*8
	if h.Length < used {
		return 0
	}
	return h.Length - used
}

// ReadPayload reads exactly PayloadSize() bytes starting at PayloadOffset.
func (h *BlockHeader) ReadPayload(r utils.ReaderAt) ([]byte, error) {
	size := h.PayloadSize()
	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}
	if _, err := r.ReadAt(buf, h.PayloadOffset); err != nil {
		return nil, errs.WrapIO(fmt.Sprintf("reading payload at %d", h.PayloadOffset), err)
	}
	return buf, nil
}

// Link returns links[i], or 0 ("absent") if the block has no link at index i.
func (h *BlockHeader) Link(i int) uint64 {
	if i < 0 || i >= len(h.Links) {
		return 0
	}
	return h.Links[i]
}
