package decode

import (
	"fmt"
	"io"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// recordChunkSize caps how many records RecordIterator reads from disk per
// refill, bounding peak memory regardless of file size (§1's "streaming,
// larger-than-memory" requirement).
const recordChunkSize = 4096

// RecordIterator walks a channel group's record stream across its data
// fragments (a single DT, or the DT list resolved from a DL), filtering by
// RecordID when the data group multiplexes multiple channel groups into one
// stream. It is restartable: calling Reset seeks back to the first fragment
// without re-walking the block graph.
type RecordIterator struct {
	r utils.ReaderAt

	fragments    []core.DataFragment
	recordSize   uint64
	recordIDSize uint8
	wantRecordID uint64
	filterByID   bool

	fragIdx    int
	fragCursor uint64 // byte offset within the current fragment's payload

	buf       []byte
	bufRecord int // index of next unread record in buf
	bufCount  int // number of valid records currently in buf
}

// NewRecordIterator builds an iterator over cg's records within dg.
// recordIDSize and the channel group's own RecordID together decide whether
// per-record filtering is needed (recordIDSize == 0 means dg holds exactly
// one channel group and every record belongs to it).
func NewRecordIterator(r utils.ReaderAt, fragments []core.DataFragment, dg *core.DataGroup, cg *core.ChannelGroup) *RecordIterator {
	it := &RecordIterator{
		r:            r,
		fragments:    fragments,
		recordIDSize: dg.RecordIDSize,
		wantRecordID: cg.RecordID,
		filterByID:   dg.RecordIDSize > 0,
	}
	it.recordSize = cg.RecordSize()
	if it.filterByID {
		it.recordSize += uint64(dg.RecordIDSize)
	}
	return it
}

// Reset rewinds the iterator to the first fragment.
func (it *RecordIterator) Reset() {
	it.fragIdx = 0
	it.fragCursor = 0
	it.bufRecord = 0
	it.bufCount = 0
}

// Next returns the next matching record's data bytes (record ID, if any,
// already stripped), or io.EOF once the fragment list is exhausted.
func (it *RecordIterator) Next() ([]byte, error) {
	for {
		if it.bufRecord < it.bufCount {
			rec := it.buf[it.bufRecord*int(it.recordSize) : (it.bufRecord+1)*int(it.recordSize)]
			it.bufRecord++
			if !it.filterByID {
				return rec, nil
			}
			id, err := readRecordID(rec, it.recordIDSize)
			if err != nil {
				return nil, err
			}
			if id != it.wantRecordID {
				continue
			}
			return rec[it.recordIDSize:], nil
		}
		if err := it.refill(); err != nil {
			return nil, err
		}
	}
}

// refill reads up to recordChunkSize whole records into it.buf, treating
// the fragment list as one continuous logical stream (§3: "the logical
// stream is their concatenation in list order") rather than requiring each
// fragment to hold a whole number of records. A record that lies across a
// fragment boundary is assembled from both fragments by readLogical (§4.E,
// §4.G).
func (it *RecordIterator) refill() error {
	if it.recordSize == 0 {
		return errs.WrapInvalidData("record iteration", errZeroRecordSize)
	}

	want, err := utils.SafeMultiply(it.recordSize, recordChunkSize)
	if err != nil {
		return err
	}
	if uint64(cap(it.buf)) < want {
		it.buf = make([]byte, want)
	}
	buf := it.buf[:want]

	n, err := it.readLogical(buf)
	if err != nil && err != io.EOF {
		return err
	}
	if n == 0 {
		return io.EOF
	}
	if uint64(n)%it.recordSize != 0 {
		return errs.WrapInvalidData("record iteration", fmt.Errorf("%d trailing bytes at end of fragment stream do not form a complete record", n))
	}
	it.bufCount = n / int(it.recordSize)
	it.bufRecord = 0
	return nil
}

// readLogical fills buf from the iterator's current position in the
// concatenated fragment stream, advancing across fragment boundaries
// transparently; it returns the number of bytes copied and io.EOF once the
// fragment list is exhausted (possibly with a non-zero, short count if EOF
// lands mid-buffer).
func (it *RecordIterator) readLogical(buf []byte) (int, error) {
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
			return total, errs.WrapIO("reading data fragment", err)
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

func readRecordID(record []byte, size uint8) (uint64, error) {
	if size == 0 || int(size) > len(record) {
		return 0, errs.WrapInvalidData("record id", errRecordIDRange)
	}
	var id uint64
	for i := 0; i < int(size); i++ {
		id |= uint64(record[i]) << (8 * i)
	}
	return id, nil
}

var (
	errZeroRecordSize = invalidIteratorError("channel group record size is zero")
	errRecordIDRange  = invalidIteratorError("record id size exceeds record length")
)

type invalidIteratorError string

func (e invalidIteratorError) Error() string { return string(e) }
