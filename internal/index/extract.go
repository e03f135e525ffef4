package index

import (
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/decode"
	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// ChannelExtractor iterates one indexed channel's raw record bytes without
// touching the block graph, the streaming counterpart to core.Walk +
// decode.RecordIterator for callers that persisted an Index earlier.
type ChannelExtractor struct {
	plan *decode.Plan
	iter *recordByteIterator
}

// NewChannelExtractor builds an extractor for name using idx's recorded
// geometry, reading record bytes through r (typically a BufferedRangeReader).
func NewChannelExtractor(r utils.ReaderAt, idx *Index, name string) (*ChannelExtractor, error) {
	entry, ok := idx.ChannelByName(name)
	if !ok {
		return nil, &errs.InvalidDataError{Context: "channel extraction", Cause: unknownChannelError(name)}
	}
	group := idx.Groups[entry.Group]

	plan := &decode.Plan{
		ByteOffset:         entry.ByteOffset,
		BitOffset:          entry.BitOffset,
		BitCount:           entry.BitCount,
		DataType:           entry.DataType,
		RecordSize:         group.RecordSize,
		DataBytes:          group.DataBytes,
		InvalidationBytes:  entry.InvalidationBytes,
		HasInvalidationBit: entry.HasInvalidationBit,
		InvalidationBitPos: entry.InvalidationBitPos,
	}

	frags := make([]core.DataFragment, len(group.Fragments))
	for i, f := range group.Fragments {
		frags[i] = core.DataFragment{Offset: f.Offset, Length: f.Length}
	}

	return &ChannelExtractor{
		plan: plan,
		iter: newRecordByteIterator(r, frags, group.RecordIDSize, group.RecordID, group.RecordSize),
	}, nil
}

// Next decodes the next sample's physical-ready raw number (conversion is
// the caller's concern, via internal/convert) and whether it is flagged
// invalid, or returns io.EOF.
func (e *ChannelExtractor) Next() (value float64, invalid bool, err error) {
	rec, err := e.iter.Next()
	if err != nil {
		return 0, false, err
	}
	v, err := e.plan.ExtractNumber(rec)
	if err != nil {
		return 0, false, err
	}
	return v, e.plan.IsInvalid(rec), nil
}

// ReadAll drains the extractor, returning every sample's raw number and a
// bitset flagging which sample indices are marked invalid. Bulk consumers
// (the public Index.ReadChannel API) use this instead of
// calling Next in a loop so the invalid-sample mask is a single compact
// value rather than one bool per sample.
func (e *ChannelExtractor) ReadAll() ([]float64, *bitset.BitSet, error) {
	var values []float64
	invalid := bitset.New(0)
	for i := uint(0); ; i++ {
		v, isInvalid, err := e.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		values = append(values, v)
		if isInvalid {
			invalid.Set(i)
		}
	}
	return values, invalid, nil
}

type unknownChannelError string

func (e unknownChannelError) Error() string { return "unknown channel: " + string(e) }

// recordByteIterator duplicates decode.RecordIterator's fragment-walking
// logic over index-derived geometry rather than a freshly walked DG/CG
// pair; kept separate so internal/index never imports the parsing-time
// core.DataGroup/ChannelGroup structs for anything but their byte shape.
type recordByteIterator struct {
	r            utils.ReaderAt
	fragments    []core.DataFragment
	recordSize   uint64
	recordIDSize uint8
	wantID       uint64
	filterByID   bool

	fragIdx    int
	fragCursor uint64
}

func newRecordByteIterator(r utils.ReaderAt, frags []core.DataFragment, recordIDSize uint8, wantID, dataRecordSize uint64) *recordByteIterator {
	it := &recordByteIterator{
		r:            r,
		fragments:    frags,
		recordIDSize: recordIDSize,
		wantID:       wantID,
		filterByID:   recordIDSize > 0,
		recordSize:   dataRecordSize,
	}
	if it.filterByID {
		it.recordSize += uint64(recordIDSize)
	}
	return it
}

// Next reads the next record's bytes, stitched across a fragment boundary
// when one falls mid-record (§4.E, §4.G: the fragment list is one
// continuous logical stream, not individually record-aligned).
func (it *recordByteIterator) Next() ([]byte, error) {
	for {
		buf := make([]byte, it.recordSize)
		n, err := it.readLogical(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if uint64(n) < it.recordSize {
			if n == 0 {
				return nil, io.EOF
			}
			return nil, errs.WrapInvalidData("indexed record iteration", fmt.Errorf("%d trailing bytes at end of fragment stream do not form a complete record", n))
		}

		if !it.filterByID {
			return buf, nil
		}
		var id uint64
		for i := 0; i < int(it.recordIDSize); i++ {
			id |= uint64(buf[i]) << (8 * i)
		}
		if id != it.wantID {
			continue
		}
		return buf[it.recordIDSize:], nil
	}
}

// readLogical fills buf from the iterator's current position in the
// concatenated fragment stream, advancing across fragment boundaries
// transparently; mirrors decode.RecordIterator.readLogical (kept separate
// per this type's doc comment, not imported, to avoid internal/index
// depending on internal/decode's iterator internals).
func (it *recordByteIterator) readLogical(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		if it.fragIdx >= len(it.fragments) {
			if total == 0 {
				return 0, io.EOF
			}
			return total, io.EOF
		}
		frag := it.fragments[it.fragIdx]
		remaining := frag.Length - it.fragCursor
		if remaining == 0 {
			it.fragIdx++
			it.fragCursor = 0
			continue
		}
		n := uint64(len(buf) - total)
		if n > remaining {
			n = remaining
		}
		if _, err := it.r.ReadAt(buf[total:total+int(n)], frag.Offset+int64(it.fragCursor)); err != nil {
			return total, errs.WrapIO("reading indexed record", err)
		}
		total += int(n)
		it.fragCursor += n
		if it.fragCursor >= frag.Length {
			it.fragIdx++
			it.fragCursor = 0
		}
	}
	return total, nil
}
