package mdf4

import (
	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/writer"
)

// Writer builds a new MDF4 file through typed builder calls, enforcing the
// §4.F state ordering: every data group/channel group/channel must be
// declared before any record is written, and Finalize may only run once.
type Writer struct {
	w *writer.Writer
}

// ChannelSpec describes one channel to add to a channel group.
type ChannelSpec = writer.ChannelSpec

// Create creates filename and returns a Writer in its initial state. A
// conforming ID block is written immediately.
func Create(filename string, versionNumber int, versionString, programID string) (*Writer, error) {
	w, err := writer.NewWriter(filename, versionNumber, versionString, programID)
	if err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// SetStartTime sets the recording start time, as nanoseconds since the Unix epoch.
func (w *Writer) SetStartTime(startTimeNs int64) { w.w.SetStartTime(startTimeNs) }

// AddDataGroup opens a new data group. recordIDSize must be 0: this writer
// always emits sorted, single-channel-group data groups (see AddChannelGroup).
func (w *Writer) AddDataGroup(recordIDSize uint8) (int, error) {
	return w.w.AddDataGroup(recordIDSize)
}

// AddChannelGroup opens the (single) channel group of data group dgIndex.
func (w *Writer) AddChannelGroup(dgIndex int, dataBytes, invalidationBytes uint32) (int, error) {
	return w.w.AddChannelGroup(dgIndex, dataBytes, invalidationBytes)
}

// AddChannel appends a channel to channel group cgIndex of data group dgIndex.
func (w *Writer) AddChannel(dgIndex, cgIndex int, spec ChannelSpec) (int, error) {
	return w.w.AddChannel(dgIndex, cgIndex, spec)
}

// WriteRecord appends one pre-encoded record to channel group cgIndex of
// data group dgIndex. Use RecordBuilder to assemble record bytes from
// typed field values instead of by hand.
func (w *Writer) WriteRecord(dgIndex, cgIndex int, record []byte) error {
	return w.w.WriteRecord(dgIndex, cgIndex, record)
}

// Finalize lays out every block, patches forward links, writes the HD
// block, flushes, and closes the file.
func (w *Writer) Finalize() error { return w.w.Finalize() }

// RecordBuilder assembles one record's bytes from typed field writes,
// wrapping internal/writer's byte-level PutNumber/PutString/SetInvalid.
type RecordBuilder struct {
	buf       []byte
	dataBytes uint32
}

// NewRecordBuilder allocates a zeroed record buffer of dataBytes +
// invalidationBytes bytes.
func NewRecordBuilder(dataBytes, invalidationBytes uint32) *RecordBuilder {
	return &RecordBuilder{buf: make([]byte, dataBytes+invalidationBytes), dataBytes: dataBytes}
}

// PutNumber writes value into the record at byteOffset, encoded as dataType.
func (b *RecordBuilder) PutNumber(byteOffset uint32, dataType core.DataType, value float64) error {
	return writer.PutNumber(b.buf, byteOffset, dataType, value)
}

// PutString writes text into the record at byteOffset, encoded as dataType
// and padded/truncated to fieldLen bytes.
func (b *RecordBuilder) PutString(byteOffset uint32, fieldLen int, dataType core.DataType, text string) error {
	return writer.PutString(b.buf, byteOffset, fieldLen, dataType, text)
}

// SetInvalid sets or clears a channel's invalidation bit.
func (b *RecordBuilder) SetInvalid(invalidationBitPos uint32, invalid bool) error {
	return writer.SetInvalid(b.buf, b.dataBytes, invalidationBitPos, invalid)
}

// Bytes returns the assembled record, ready for Writer.WriteRecord.
func (b *RecordBuilder) Bytes() []byte { return b.buf }
