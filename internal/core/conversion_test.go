package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversion_LinearRoundTrip(t *testing.T) {
	cc := &Conversion{Type: ConversionLinear, Params: []float64{1.5, 2.5}}
	encoded, err := EncodeConversion(cc)
	require.NoError(t, err)

	r := bytes.NewReader(encoded)
	got, err := ReadConversion(r, 0)
	require.NoError(t, err)
	assert.Equal(t, ConversionLinear, got.Type)
	assert.Equal(t, []float64{1.5, 2.5}, got.Params)
}

func TestConversion_AlgebraicRoundTrip(t *testing.T) {
	cc := &Conversion{Type: ConversionAlgebraic, Text: "X * 2 + 1"}
	encoded, err := EncodeConversion(cc)
	require.NoError(t, err)

	r := bytes.NewReader(encoded)
	got, err := ReadConversion(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "X * 2 + 1", got.Text)
}

func TestConversion_RefsRoundTrip(t *testing.T) {
	cc := &Conversion{Type: ConversionValueRangeToValue, Params: []float64{0, 10, 99}, Refs: []uint64{1000, 2000}}
	encoded, err := EncodeConversion(cc)
	require.NoError(t, err)

	r := bytes.NewReader(encoded)
	got, err := ReadConversion(r, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1000, 2000}, got.Refs)
}
