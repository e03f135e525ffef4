package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagSR is the sample reduction block's tag.
const TagSR = "##SR"

const srLinkCount = 2

const (
	srLinkNext = iota
	srLinkData
)

// SampleReduction is the decoded SR block: a pre-computed min/max/avg
// summary over a fixed time interval of a channel group's records. This
// library resolves the SR linked list for completeness of the walk but does
// not decode SR record bytes (no spec operation consumes reduced samples).
type SampleReduction struct {
	Offset uint64

	Next uint64
	Data uint64

	CycleCount   uint64
	TimeInterval float64
}

// ReadSampleReduction decodes the SR block at offset.
func ReadSampleReduction(r utils.ReaderAt, offset uint64) (*SampleReduction, error) {
	hdr, err := ReadBlockHeader(r, int64(offset))
	if err != nil {
		return nil, err
	}
	if err := hdr.ExpectTag(TagSR); err != nil {
		return nil, err
	}
	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return nil, err
	}
	if len(payload) < 16 {
		return nil, errs.WrapInvalidData("SR payload", fmt.Errorf("payload too short: %d bytes", len(payload)))
	}

	return &SampleReduction{
		Offset:       offset,
		Next:         hdr.Link(srLinkNext),
		Data:         hdr.Link(srLinkData),
		CycleCount:   binary.LittleEndian.Uint64(payload[0:8]),
		TimeInterval: math.Float64frombits(binary.LittleEndian.Uint64(payload[8:16])),
	}, nil
}

// EncodeSampleReduction serializes an SR block.
func EncodeSampleReduction(sr *SampleReduction) ([]byte, error) {
	links := make([]uint64, srLinkCount)
	links[srLinkNext] = sr.Next
	links[srLinkData] = sr.Data

	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload[0:8], sr.CycleCount)
	binary.LittleEndian.PutUint64(payload[8:16], math.Float64bits(sr.TimeInterval))

	return EncodeBlock(TagSR, links, payload)
}

// walkSampleReductions follows the SR linked list starting at link, used by
// walkChannelGroup to populate ResolvedGroup.SampleReductions.
func walkSampleReductions(r utils.ReaderAt, link uint64) ([]*SampleReduction, error) {
	var out []*SampleReduction
	for srOffset := link; srOffset != 0; {
		sr, err := ReadSampleReduction(r, srOffset)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
		srOffset = sr.Next
	}
	return out, nil
}
