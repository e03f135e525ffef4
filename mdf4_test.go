package mdf4

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdf4go/mdf4/internal/core"
)

func TestWriteThenOpen_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.mf4")

	w, err := Create(path, 410, "4.10", "mdf4go ")
	require.NoError(t, err)
	w.SetStartTime(1_690_000_000_000_000_000)

	dg, err := w.AddDataGroup(0)
	require.NoError(t, err)
	cg, err := w.AddChannelGroup(dg, 16, 0)
	require.NoError(t, err)

	_, err = w.AddChannel(dg, cg, ChannelSpec{
		Name:        "Time",
		ChannelType: core.ChannelTypeMaster,
		SyncType:    core.SyncTypeTime,
		DataType:    core.DataTypeFloatLE,
		ByteOffset:  0,
		BitCount:    64,
	})
	require.NoError(t, err)
	_, err = w.AddChannel(dg, cg, ChannelSpec{
		Name:       "Temperature",
		Unit:       "degC",
		DataType:   core.DataTypeFloatLE,
		ByteOffset: 8,
		BitCount:   64,
		Conversion: &core.Conversion{Type: core.ConversionLinear, Params: []float64{-40, 0.1}},
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		rb := NewRecordBuilder(16, 0)
		require.NoError(t, rb.PutNumber(0, core.DataTypeFloatLE, float64(i)))
		require.NoError(t, rb.PutNumber(8, core.DataTypeFloatLE, float64(i*100)))
		require.NoError(t, w.WriteRecord(dg, cg, rb.Bytes()))
	}
	require.NoError(t, w.Finalize())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 410, f.VersionNumber())
	assert.Equal(t, int64(1_690_000_000_000_000_000), f.StartTime())
	require.Len(t, f.DataGroups(), 1)

	groups := f.DataGroups()[0].ChannelGroups()
	require.Len(t, groups, 1)
	channels := groups[0].Channels()
	require.Len(t, channels, 2)
	assert.Equal(t, "Time", channels[0].Name())
	assert.Equal(t, "Temperature", channels[1].Name())
	assert.Equal(t, "degC", channels[1].Unit())

	reader, err := channels[1].Reader()
	require.NoError(t, err)
	var got []float64
	for {
		s, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, s.Number)
	}
	assert.Equal(t, []float64{-40, -30, -20, -10}, got)
}

func TestFile_Index_ReadChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexed.mf4")

	w, err := Create(path, 410, "4.10", "mdf4go ")
	require.NoError(t, err)
	dg, err := w.AddDataGroup(0)
	require.NoError(t, err)
	cg, err := w.AddChannelGroup(dg, 8, 0)
	require.NoError(t, err)
	_, err = w.AddChannel(dg, cg, ChannelSpec{
		Name:       "Counter",
		DataType:   core.DataTypeUnsignedLE,
		ByteOffset: 0,
		BitCount:   64,
	})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		rb := NewRecordBuilder(8, 0)
		require.NoError(t, rb.PutNumber(0, core.DataTypeUnsignedLE, float64(i)))
		require.NoError(t, w.WriteRecord(dg, cg, rb.Bytes()))
	}
	require.NoError(t, w.Finalize())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	idx := f.Index()
	values, invalid, err := idx.ReadChannel("Counter")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, values)
	assert.Equal(t, uint(0), invalid.Count())
}
