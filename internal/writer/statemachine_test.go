package writer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdf4go/mdf4/internal/convert"
	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/decode"
)

func TestWriter_RejectsOutOfOrderCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mf4")
	w, err := NewWriter(path, 410, "4.10", "mdf4go ")
	require.NoError(t, err)

	_, err = w.AddChannelGroup(0, 8, 0)
	assert.Error(t, err, "AddChannelGroup before any AddDataGroup must fail")

	dg, err := w.AddDataGroup(0)
	require.NoError(t, err)

	err = w.WriteRecord(dg, 0, []byte{0})
	assert.Error(t, err, "WriteRecord before AddChannelGroup must fail")

	cg, err := w.AddChannelGroup(dg, 8, 0)
	require.NoError(t, err)

	_, err = w.AddChannelGroup(dg, 8, 0)
	assert.Error(t, err, "a second channel group in the same data group must be rejected")

	err = w.Finalize()
	assert.Error(t, err, "Finalize before any data was written must fail")

	require.NoError(t, w.WriteRecord(dg, cg, make([]byte, 8)))
	require.NoError(t, w.Finalize())

	assert.Error(t, w.Finalize(), "Finalize called twice must fail")
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mf4")
	w, err := NewWriter(path, 410, "4.10", "mdf4go ")
	require.NoError(t, err)
	w.SetStartTime(1_700_000_000_000_000_000)

	dg, err := w.AddDataGroup(0)
	require.NoError(t, err)
	cg, err := w.AddChannelGroup(dg, 8, 0)
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

	speedConv := &core.Conversion{
		Type:   core.ConversionLinear,
		Params: []float64{0, 2},
	}
	_, err = w.AddChannel(dg, cg, ChannelSpec{
		Name:       "Speed",
		Unit:       "km/h",
		DataType:   core.DataTypeUnsignedLE,
		ByteOffset: 8,
		BitCount:   64,
		Conversion: speedConv,
	})
	require.NoError(t, err)

	wantTimes := []float64{0, 1, 2}
	wantSpeeds := []uint64{10, 20, 30}
	for i := range wantTimes {
		record := make([]byte, 16)
		require.NoError(t, PutNumber(record, 0, core.DataTypeFloatLE, wantTimes[i]))
		require.NoError(t, PutNumber(record, 8, core.DataTypeUnsignedLE, float64(wantSpeeds[i])))
		require.NoError(t, w.WriteRecord(dg, cg, record))
	}

	require.NoError(t, w.Finalize())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	file, err := core.Walk(f)
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000_000_000_000), file.Header.StartTimeNs)
	require.Len(t, file.Groups, 1)
	require.Len(t, file.Groups[0].Groups, 1)

	rg := file.Groups[0].Groups[0]
	require.Len(t, rg.Channels, 2)
	assert.Equal(t, "Time", rg.Channels[0].Name)
	assert.Equal(t, "Speed", rg.Channels[1].Name)
	assert.Equal(t, "km/h", rg.Channels[1].Unit)
	require.Len(t, rg.Channels[1].Conversions, 1)
	assert.Equal(t, core.ConversionLinear, rg.Channels[1].Conversions[0].Type)

	timePlan, err := decode.BuildPlan(rg.Channels[0].Channel, rg.Group)
	require.NoError(t, err)
	speedPlan, err := decode.BuildPlan(rg.Channels[1].Channel, rg.Group)
	require.NoError(t, err)

	it := decode.NewRecordIterator(f, file.Groups[0].Fragments, file.Groups[0].DataGroup, rg.Group)

	var gotTimes []float64
	var gotSpeedsPhysical []float64
	for {
		record, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		tv, err := timePlan.ExtractNumber(record)
		require.NoError(t, err)
		gotTimes = append(gotTimes, tv)

		raw, err := speedPlan.ExtractNumber(record)
		require.NoError(t, err)
		result, err := convert.Apply(f, rg.Channels[1].Conversions, raw)
		require.NoError(t, err)
		require.False(t, result.IsText)
		gotSpeedsPhysical = append(gotSpeedsPhysical, result.Number)
	}

	assert.Equal(t, wantTimes, gotTimes)
	assert.Equal(t, []float64{20, 40, 60}, gotSpeedsPhysical)
}
