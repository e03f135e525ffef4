package core

import (
	"errors"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagDT is the raw contiguous data block's tag.
const TagDT = "##DT"

// TagDL is the data list block's tag: a linked list of DT fragments that
// together form one logical record stream. This library's own writer never
// emits DL (every channel group it writes gets one contiguous DT), but
// readers must still walk DL-linked data produced by other tools.
const TagDL = "##DL"

const (
	dlLinkNext = iota
	// dlLinkData0 is the first of N variable data-block links.
	dlLinkData0
)

// DataFragment is one contiguous run of record bytes, wherever it lives on
// disk: either the whole of a DT block, or one entry of a DL's list.
type DataFragment struct {
	Offset int64  // file offset of the first payload byte
	Length uint64 // payload byte length
}

// ResolveDataFragments follows a DG's data link (which may point at a bare
// DT or at a DL) and returns the ordered list of contiguous byte ranges that
// make up the data group's record stream.
func ResolveDataFragments(r utils.ReaderAt, link uint64) ([]DataFragment, error) {
	if link == 0 {
		return nil, nil
	}
	hdr, err := ReadBlockHeader(r, int64(link))
	if err != nil {
		return nil, err
	}
	switch hdr.Tag {
	case TagDT:
		return []DataFragment{{Offset: hdr.PayloadOffset, Length: hdr.PayloadSize()}}, nil
	case TagDL:
		return resolveDataList(r, hdr)
	default:
		return nil, &errs.InvalidBlockError{Expected: []string{TagDT, TagDL}, Found: hdr.Tag, Offset: int64(link)}
	}
}

func resolveDataList(r utils.ReaderAt, hdr *BlockHeader) ([]DataFragment, error) {
	var frags []DataFragment
	visited := map[uint64]bool{}

	for hdr != nil {
		offset := uint64(hdr.PayloadOffset) - blockHeaderSize - uint64(len(hdr.Links))*8
		if visited[offset] {
			return nil, errs.WrapInvalidData("DL chain", errors.New("cyclic DL chain"))
		}
		visited[offset] = true

		for i := dlLinkData0; i < len(hdr.Links); i++ {
			childLink := hdr.Link(i)
			if childLink == 0 {
				continue
			}
			childHdr, err := ReadBlockHeader(r, int64(childLink))
			if err != nil {
				return nil, err
			}
			if err := childHdr.ExpectTag(TagDT); err != nil {
				return nil, err
			}
			frags = append(frags, DataFragment{Offset: childHdr.PayloadOffset, Length: childHdr.PayloadSize()})
		}

		next := hdr.Link(dlLinkNext)
		if next == 0 {
			break
		}
		nextHdr, err := ReadBlockHeader(r, int64(next))
		if err != nil {
			return nil, err
		}
		if err := nextHdr.ExpectTag(TagDL); err != nil {
			return nil, err
		}
		hdr = nextHdr
	}
	return frags, nil
}
