package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagCC is the channel conversion block's tag.
const TagCC = "##CC"

// ConversionType enumerates the ten conversion kinds of §4.D, numbered
// exactly as the spec's table: 6 is left unassigned (the spec's table has
// no entry for it) rather than reused for a type the spec doesn't define.
type ConversionType uint8

const (
	ConversionIdentity          ConversionType = 0
	ConversionLinear            ConversionType = 1
	ConversionRational          ConversionType = 2
	ConversionAlgebraic         ConversionType = 3
	ConversionValueToValue      ConversionType = 4
	ConversionValueRangeToValue ConversionType = 5
	// 6 is reserved: the spec's conversion table has no entry between 5 and 7.
	ConversionValueToText      ConversionType = 7
	ConversionValueRangeToText ConversionType = 8
	ConversionTextToValue      ConversionType = 9
	ConversionTextToText       ConversionType = 10
)

// fixedLinkCount is the number of links every CC block carries before its
// variable-length reference array: unit text, comment metadata, inverse
// conversion.
const fixedLinkCount = 3

const (
	ccLinkUnit = iota
	ccLinkComment
	ccLinkInverse
)

// Conversion is the decoded, not-yet-resolved CC block: numeric parameters
// plus the raw reference links whose meaning depends on Type (text blocks
// for text-producing types, nested CC blocks for value-range-to-value).
type Conversion struct {
	Offset uint64

	UnitLink    uint64
	CommentLink uint64
	InverseLink uint64
	Refs        []uint64 // ref[0..N-1], meaning depends on Type

	Type   ConversionType
	Params []float64 // raw val[0..M-1], interpretation depends on Type
	Text   string    // formula text, present only for ConversionAlgebraic
}

// ReadConversion decodes the CC block at offset. The formula text (for
// ConversionAlgebraic) is stored as the first "parameter" slot per the
// standard's overlay of text-as-double storage; this reader instead reads it
// directly out of the payload tail as a NUL-terminated string, which keeps
// Conversion.Text populated without a second round trip through TX.
func ReadConversion(r utils.ReaderAt, offset uint64) (*Conversion, error) {
	hdr, err := ReadBlockHeader(r, int64(offset))
	if err != nil {
		return nil, err
	}
	if err := hdr.ExpectTag(TagCC); err != nil {
		return nil, err
	}
	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return nil, err
	}
	if len(payload) < 4 {
		return nil, errs.WrapInvalidData("CC payload", fmt.Errorf("payload too short: %d bytes", len(payload)))
	}

	ctype := ConversionType(payload[0])
	valCount := int(binary.LittleEndian.Uint16(payload[2:4]))

	c := &Conversion{
		Offset:      offset,
		UnitLink:    hdr.Link(ccLinkUnit),
		CommentLink: hdr.Link(ccLinkComment),
		InverseLink: hdr.Link(ccLinkInverse),
		Type:        ctype,
	}

	refCount := 0
	if int(hdr.linkCount()) > fixedLinkCount {
		refCount = int(hdr.linkCount()) - fixedLinkCount
	}
	c.Refs = make([]uint64, refCount)
	for i := 0; i < refCount; i++ {
		c.Refs[i] = hdr.Link(fixedLinkCount + i)
	}

	if ctype == ConversionAlgebraic {
		text, err := readNulTerminated(payload[4:])
		if err != nil {
			return nil, errs.WrapInvalidData("CC algebraic formula", err)
		}
		c.Text = text
		return c, nil
	}

	const headerBytes = 4
	need, err := utils.SafeMultiply(uint64(valCount), 8)
	if err != nil {
		return nil, errs.WrapInvalidData("CC payload", err)
	}
	if uint64(len(payload)) < headerBytes+need {
		return nil, errs.WrapInvalidData("CC payload", fmt.Errorf("declared %d values but payload has room for fewer", valCount))
	}
	c.Params = make([]float64, valCount)
	for i := 0; i < valCount; i++ {
		off := headerBytes + i*8
		bits := binary.LittleEndian.Uint64(payload[off : off+8])
		c.Params[i] = math.Float64frombits(bits)
	}
	return c, nil
}

// EncodeConversion serializes a CC block.
func EncodeConversion(c *Conversion) ([]byte, error) {
	links := make([]uint64, fixedLinkCount+len(c.Refs))
	links[ccLinkUnit] = c.UnitLink
	links[ccLinkComment] = c.CommentLink
	links[ccLinkInverse] = c.InverseLink
	copy(links[fixedLinkCount:], c.Refs)

	var payload []byte
	if c.Type == ConversionAlgebraic {
		payload = make([]byte, 4+len(c.Text)+1)
		payload[0] = byte(c.Type)
		binary.LittleEndian.PutUint16(payload[2:4], 0)
		copy(payload[4:], c.Text)
	} else {
		payload = make([]byte, 4+len(c.Params)*8)
		payload[0] = byte(c.Type)
		binary.LittleEndian.PutUint16(payload[2:4], uint16(len(c.Params)))
		for i, v := range c.Params {
			off := 4 + i*8
			binary.LittleEndian.PutUint64(payload[off:off+8], math.Float64bits(v))
		}
	}
	return EncodeBlock(TagCC, links, payload)
}

func readNulTerminated(b []byte) (string, error) {
	for i, ch := range b {
		if ch == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// linkCount reports the number of links this header's payload declared.
func (h *BlockHeader) linkCount() uint64 {
	return uint64(len(h.Links))
}
