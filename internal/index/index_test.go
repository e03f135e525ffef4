package index

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() *Index {
	return &Index{
		SourceVersion: 411,
		Groups: []GroupEntry{
			{RecordSize: 4, Fragments: []FragmentRange{{Offset: 0, Length: 40}}},
		},
		Channels: []ChannelEntry{
			{Name: "Speed", Group: 0, BitCount: 32, DataType: core.DataTypeUnsignedLE},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	idx := sampleIndex()
	var buf bytes.Buffer
	require.NoError(t, Save(idx, &buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	eq, err := Equal(idx, loaded)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestLoad_RejectsCorruptedChecksum(t *testing.T) {
	idx := sampleIndex()
	var buf bytes.Buffer
	require.NoError(t, Save(idx, &buf))

	corrupted := bytes.Replace(buf.Bytes(), []byte("Speed"), []byte("Wrong"), 1)
	_, err := Load(bytes.NewReader(corrupted))
	require.Error(t, err)
}

func TestChannelByName(t *testing.T) {
	idx := sampleIndex()
	entry, ok := idx.ChannelByName("Speed")
	require.True(t, ok)
	assert.Equal(t, uint32(32), entry.BitCount)

	_, ok = idx.ChannelByName("Missing")
	assert.False(t, ok)
}

type memReader struct{ data []byte }

func (m *memReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func TestChannelExtractor_WalksFragments(t *testing.T) {
	data := make([]byte, 4*5)
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i*10))
	}

	idx := &Index{
		Groups: []GroupEntry{
			{RecordSize: 4, Fragments: []FragmentRange{{Offset: 0, Length: uint64(len(data))}}},
		},
		Channels: []ChannelEntry{
			{Name: "Speed", Group: 0, BitCount: 32, DataType: core.DataTypeUnsignedLE},
		},
	}

	ex, err := NewChannelExtractor(&memReader{data: data}, idx, "Speed")
	require.NoError(t, err)

	var got []float64
	for {
		v, invalid, err := ex.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.False(t, invalid)
		got = append(got, v)
	}
	assert.Equal(t, []float64{0, 10, 20, 30, 40}, got)
}

func TestChannelExtractor_AssemblesRecordAcrossFragmentBoundary(t *testing.T) {
	data := make([]byte, 4*5)
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(i*10))
	}

	// Split at byte 6, inside record index 1 (bytes 4..7).
	const split = 6
	idx := &Index{
		Groups: []GroupEntry{
			{RecordSize: 4, Fragments: []FragmentRange{
				{Offset: 0, Length: split},
				{Offset: split, Length: uint64(len(data)) - split},
			}},
		},
		Channels: []ChannelEntry{
			{Name: "Speed", Group: 0, BitCount: 32, DataType: core.DataTypeUnsignedLE},
		},
	}

	ex, err := NewChannelExtractor(&memReader{data: data}, idx, "Speed")
	require.NoError(t, err)

	var got []float64
	for {
		v, invalid, err := ex.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.False(t, invalid)
		got = append(got, v)
	}
	assert.Equal(t, []float64{0, 10, 20, 30, 40}, got)
}

func TestBufferedRangeReader_CachesPages(t *testing.T) {
	data := make([]byte, PageSize*3)
	for i := range data {
		data[i] = byte(i)
	}
	r, err := NewBufferedRangeReader(&memReader{data: data}, 2)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := r.ReadAt(buf, PageSize+5)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, data[PageSize+5:PageSize+5+16], buf)
}
