package decode

import (
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_RejectsOutOfRangeField(t *testing.T) {
	cn := &core.Channel{DataType: core.DataTypeUnsignedLE, ByteOffset: 0, BitCount: 32}
	cg := &core.ChannelGroup{DataBytes: 2}
	_, err := BuildPlan(cn, cg)
	require.Error(t, err)
}

func TestExtractNumber_UnsignedAligned(t *testing.T) {
	cn := &core.Channel{DataType: core.DataTypeUnsignedLE, ByteOffset: 0, BitCount: 32}
	cg := &core.ChannelGroup{DataBytes: 4}
	p, err := BuildPlan(cn, cg)
	require.NoError(t, err)

	record := make([]byte, 4)
	binary.LittleEndian.PutUint32(record, 123456)
	v, err := p.ExtractNumber(record)
	require.NoError(t, err)
	assert.Equal(t, 123456.0, v)
}

func TestExtractNumber_SignedBitPacked(t *testing.T) {
	// 12-bit signed field starting at bit 4 of a 2-byte record, value -5.
	cn := &core.Channel{DataType: core.DataTypeSignedLE, ByteOffset: 0, BitOffset: 4, BitCount: 12}
	cg := &core.ChannelGroup{DataBytes: 2}
	p, err := BuildPlan(cn, cg)
	require.NoError(t, err)

	var raw uint16 = 0x1000 - 5 // -5 as a 12-bit two's-complement value (0xFFB)
	record := make([]byte, 2)
	binary.LittleEndian.PutUint16(record, raw<<4)

	v, err := p.ExtractNumber(record)
	require.NoError(t, err)
	assert.Equal(t, -5.0, v)
}

func TestExtractNumber_Float64(t *testing.T) {
	cn := &core.Channel{DataType: core.DataTypeFloatLE, ByteOffset: 0, BitCount: 64}
	cg := &core.ChannelGroup{DataBytes: 8}
	p, err := BuildPlan(cn, cg)
	require.NoError(t, err)

	record := make([]byte, 8)
	binary.LittleEndian.PutUint64(record, math.Float64bits(3.25))
	v, err := p.ExtractNumber(record)
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)
}

func TestExtractString_UTF8Truncated(t *testing.T) {
	cn := &core.Channel{DataType: core.DataTypeStringUTF8, ByteOffset: 0, BitCount: 8 * 8}
	cg := &core.ChannelGroup{DataBytes: 8}
	p, err := BuildPlan(cn, cg)
	require.NoError(t, err)

	record := make([]byte, 8)
	copy(record, "hi\x00\x00\x00\x00\x00\x00")
	s, err := p.ExtractString(record)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
}

func TestIsInvalid(t *testing.T) {
	cn := &core.Channel{
		DataType:           core.DataTypeUnsignedLE,
		BitCount:           8,
		Flags:              core.ChannelFlagInvalidationBitValid,
		InvalidationBitPos: 2,
	}
	cg := &core.ChannelGroup{DataBytes: 1, InvalidationBytes: 1}
	p, err := BuildPlan(cn, cg)
	require.NoError(t, err)

	record := []byte{0x00, 0b00000100}
	assert.True(t, p.IsInvalid(record))

	record2 := []byte{0x00, 0b00000000}
	assert.False(t, p.IsInvalid(record2))
}

func TestRecordIterator_NoRecordIDFiltering(t *testing.T) {
	recordSize := 4
	data := make([]byte, recordSize*10)
	for i := 0; i < 10; i++ {
		binary.LittleEndian.PutUint32(data[i*recordSize:], uint32(i))
	}

	r := newMockReader(data)
	frag := core.DataFragment{Offset: 0, Length: uint64(len(data))}
	dg := &core.DataGroup{RecordIDSize: 0}
	cg := &core.ChannelGroup{DataBytes: 4}

	it := NewRecordIterator(r, []core.DataFragment{frag}, dg, cg)
	count := 0
	for {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, uint32(count), binary.LittleEndian.Uint32(rec))
		count++
	}
	assert.Equal(t, 10, count)
}

func TestRecordIterator_FiltersByRecordID(t *testing.T) {
	// record id (1 byte) + 4-byte payload, two interleaved channel groups.
	var data []byte
	for i := 0; i < 6; i++ {
		id := byte(i % 2)
		rec := make([]byte, 5)
		rec[0] = id
		binary.LittleEndian.PutUint32(rec[1:], uint32(i))
		data = append(data, rec...)
	}

	r := newMockReader(data)
	frag := core.DataFragment{Offset: 0, Length: uint64(len(data))}
	dg := &core.DataGroup{RecordIDSize: 1}
	cg := &core.ChannelGroup{RecordID: 1, DataBytes: 4}

	it := NewRecordIterator(r, []core.DataFragment{frag}, dg, cg)
	var got []uint32
	for {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, binary.LittleEndian.Uint32(rec))
	}
	assert.Equal(t, []uint32{1, 3, 5}, got)
}

func TestRecordIterator_AssemblesRecordAcrossFragmentBoundary(t *testing.T) {
	recordSize := 4
	data := make([]byte, recordSize*10)
	for i := 0; i < 10; i++ {
		binary.LittleEndian.PutUint32(data[i*recordSize:], uint32(i))
	}

	// Split the backing bytes into two fragments whose boundary (at byte 6)
	// falls in the middle of record index 1 (bytes 4..7), not on a record
	// boundary.
	const split = 6
	r := newMockReader(data)
	frags := []core.DataFragment{
		{Offset: 0, Length: split},
		{Offset: split, Length: uint64(len(data)) - split},
	}
	dg := &core.DataGroup{RecordIDSize: 0}
	cg := &core.ChannelGroup{DataBytes: 4}

	it := NewRecordIterator(r, frags, dg, cg)
	var got []uint32
	for {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, binary.LittleEndian.Uint32(rec))
	}

	want := make([]uint32, 10)
	for i := range want {
		want[i] = uint32(i)
	}
	assert.Equal(t, want, got)
}

type mockReader struct{ data []byte }

func newMockReader(data []byte) *mockReader { return &mockReader{data: data} }

func (m *mockReader) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m.data[off:])
	return n, nil
}
