// Package writer's statemachine.go implements the §4.F writer state
// machine: Empty -> Initialized -> AddingGroups -> WritingData -> Finalized.
// It follows the teacher's allocate-then-patch discipline (internal/writer
// allocator.go): every block is written once, at its final address, except
// for forward "Next" links which start as 0 ("no sibling yet") and are
// backpatched in place via FileWriter.WriteAtAddress once the following
// sibling's address is known — the same placeholder pattern the teacher
// uses for object header continuation addresses.
package writer

import (
	"fmt"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
)

// State is one node of the writer's state machine.
type State int

const (
	StateEmpty State = iota
	StateInitialized
	StateAddingGroups
	StateWritingData
	StateFinalized
)

// ChannelSpec describes one channel to be added to a channel group, before
// its CN block has been allocated.
type ChannelSpec struct {
	Name       string
	Unit       string
	Comment    string
	DataType   core.DataType
	ByteOffset uint32
	BitCount   uint32
	ChannelType core.ChannelType
	SyncType    core.SyncType
	Conversion  *core.Conversion

	InvalidationBitPos uint32
	HasInvalidationBit bool
}

type pendingChannel struct {
	spec   ChannelSpec
	offset uint64
}

type pendingGroup struct {
	recordIDSize      uint8
	dataBytes         uint32
	invalidationBytes uint32
	channels          []*pendingChannel
	records           [][]byte
	offset            uint64
	dtOffset          uint64
}

type pendingDataGroup struct {
	recordIDSize uint8
	groups       []*pendingGroup
	offset       uint64
}

// Writer builds a new MDF4 file through a sequence of typed builder calls,
// enforcing §4.F's state ordering: groups may only be added before any
// records are written, and once Finalize runs the writer cannot be reused.
type Writer struct {
	fw    *FileWriter
	state State

	header     core.Header
	dataGroups []*pendingDataGroup

	// writingGroup is set once WriteRecord has been called for any group,
	// locking further topology changes per the WritingData state.
	writingGroup *pendingGroup
}

// NewWriter creates filename, writes the fixed-size ID block, and reserves
// the HD block's slot directly after it, leaving the writer in
// StateInitialized. The HD block is written into that slot during Finalize,
// once the first data group's address is known.
func NewWriter(filename string, versionNumber int, versionString, programID string) (*Writer, error) {
	hdBytes, err := core.EncodeHeader(&core.Header{})
	if err != nil {
		return nil, errs.WrapInvalidData("encoding HD block", err)
	}
	fw, err := NewFileWriter(filename, ModeTruncate, core.IDSize+uint64(len(hdBytes)))
	if err != nil {
		return nil, err
	}
	idBytes := core.EncodeID(versionNumber, versionString, programID)
	if err := fw.WriteAtAddress(idBytes, 0); err != nil {
		return nil, err
	}
	return &Writer{fw: fw, state: StateInitialized}, nil
}

// SetStartTime sets the HD block's recording start time, in nanoseconds
// since the Unix epoch.
func (w *Writer) SetStartTime(startTimeNs int64) {
	w.header.StartTimeNs = startTimeNs
}

// AddDataGroup opens a new data group, transitioning Initialized or
// AddingGroups into AddingGroups. Returns its index for use with
// AddChannelGroup.
func (w *Writer) AddDataGroup(recordIDSize uint8) (int, error) {
	if w.state != StateInitialized && w.state != StateAddingGroups {
		return 0, &errs.InvalidStateError{Context: fmt.Sprintf("AddDataGroup called in state %d, want Initialized or AddingGroups", w.state)}
	}
	w.state = StateAddingGroups
	w.dataGroups = append(w.dataGroups, &pendingDataGroup{recordIDSize: recordIDSize})
	return len(w.dataGroups) - 1, nil
}

// AddChannelGroup opens a new channel group within data group dgIndex. Each
// data group supports exactly one channel group: this writer always emits
// sorted (single-CG) data groups, one DT per group, so it never needs to
// multiplex records from several channel groups by record ID into a shared
// data block. Files that need unsorted, multi-CG data groups must be written
// as one data group per channel group instead.
func (w *Writer) AddChannelGroup(dgIndex int, dataBytes, invalidationBytes uint32) (int, error) {
	if w.state != StateAddingGroups {
		return 0, &errs.InvalidStateError{Context: fmt.Sprintf("AddChannelGroup called in state %d, want AddingGroups", w.state)}
	}
	dg, err := w.dataGroup(dgIndex)
	if err != nil {
		return 0, err
	}
	if len(dg.groups) > 0 {
		return 0, &errs.UnsupportedFeatureError{What: "more than one channel group per data group"}
	}
	dg.groups = append(dg.groups, &pendingGroup{
		recordIDSize:      dg.recordIDSize,
		dataBytes:         dataBytes,
		invalidationBytes: invalidationBytes,
	})
	return len(dg.groups) - 1, nil
}

// AddChannel appends a channel to channel group cgIndex of data group dgIndex.
func (w *Writer) AddChannel(dgIndex, cgIndex int, spec ChannelSpec) (int, error) {
	if w.state != StateAddingGroups {
		return 0, &errs.InvalidStateError{Context: fmt.Sprintf("AddChannel called in state %d, want AddingGroups", w.state)}
	}
	group, err := w.channelGroup(dgIndex, cgIndex)
	if err != nil {
		return 0, err
	}
	group.channels = append(group.channels, &pendingChannel{spec: spec})
	return len(group.channels) - 1, nil
}

// WriteRecord appends one pre-encoded record (exactly recordIDSize+dataBytes+
// invalidationBytes long; see internal/writer encode.go for field-level helpers) to channel
// group cgIndex of data group dgIndex, transitioning AddingGroups into
// WritingData on first use. Once any group has started receiving records,
// no further AddDataGroup/AddChannelGroup/AddChannel calls are accepted —
// topology is frozen for the rest of the file.
func (w *Writer) WriteRecord(dgIndex, cgIndex int, record []byte) error {
	if w.state != StateAddingGroups && w.state != StateWritingData {
		return &errs.InvalidStateError{Context: fmt.Sprintf("WriteRecord called in state %d, want AddingGroups or WritingData", w.state)}
	}
	group, err := w.channelGroup(dgIndex, cgIndex)
	if err != nil {
		return err
	}
	want := int(group.dataBytes + group.invalidationBytes + uint32(group.recordIDSize))
	if len(record) != want {
		return &errs.InvalidDataError{Context: "WriteRecord", Cause: fmt.Errorf("record is %d bytes, want %d", len(record), want)}
	}
	w.state = StateWritingData
	w.writingGroup = group
	group.records = append(group.records, append([]byte(nil), record...))
	return nil
}

// Finalize lays out every block, patches forward links, writes the HD
// prologue, flushes, and closes the file. The writer cannot be used again.
func (w *Writer) Finalize() error {
	if w.state == StateFinalized {
		return &errs.InvalidStateError{Context: "Finalize called twice"}
	}
	if w.state != StateWritingData {
		return &errs.InvalidStateError{Context: fmt.Sprintf("Finalize called in state %d, want WritingData", w.state)}
	}

	if err := w.writeGroups(); err != nil {
		return err
	}

	headerBytes, err := core.EncodeHeader(&w.header)
	if err != nil {
		return errs.WrapInvalidData("encoding HD block", err)
	}
	if err := w.fw.WriteAtAddress(headerBytes, core.IDSize); err != nil {
		return err
	}

	w.state = StateFinalized
	if err := w.fw.Flush(); err != nil {
		return err
	}
	return w.fw.Close()
}

func (w *Writer) dataGroup(i int) (*pendingDataGroup, error) {
	if i < 0 || i >= len(w.dataGroups) {
		return nil, &errs.InvalidDataError{Context: "data group index", Cause: fmt.Errorf("%d out of range [0,%d)", i, len(w.dataGroups))}
	}
	return w.dataGroups[i], nil
}

func (w *Writer) channelGroup(dgIndex, cgIndex int) (*pendingGroup, error) {
	dg, err := w.dataGroup(dgIndex)
	if err != nil {
		return nil, err
	}
	if cgIndex < 0 || cgIndex >= len(dg.groups) {
		return nil, &errs.InvalidDataError{Context: "channel group index", Cause: fmt.Errorf("%d out of range [0,%d)", cgIndex, len(dg.groups))}
	}
	return dg.groups[cgIndex], nil
}
