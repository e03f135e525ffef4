package mdf4

import (
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/mdf4go/mdf4/internal/index"
	"github.com/mdf4go/mdf4/internal/utils"
)

// Index is a compact, persistable directory of channel byte ranges (§4.G),
// letting a channel's samples be extracted without re-walking the block
// graph. Once built, an Index is immutable and safe to share across
// goroutines.
type Index struct {
	idx *index.Index
	r   utils.ReaderAt
}

// Save persists idx to w in the index file format described by §4.G's
// schema (human-readable, forward-compatible: unknown fields are ignored
// on load).
func (idx *Index) Save(w io.Writer) error {
	return index.Save(idx.idx, w)
}

// LoadIndex reads an index previously written by (*Index).Save, binding it
// to r for subsequent channel reads. r is typically a BufferedRangeReader
// wrapping a remote or memory-mapped byte source.
func LoadIndex(r io.Reader, source utils.ReaderAt) (*Index, error) {
	idx, err := index.Load(r)
	if err != nil {
		return nil, err
	}
	return &Index{idx: idx, r: source}, nil
}

// ChannelNames returns every channel name recorded in the index, in the
// order they were encountered while building it.
func (idx *Index) ChannelNames() []string {
	names := make([]string, len(idx.idx.Channels))
	for i, c := range idx.idx.Channels {
		names[i] = c.Name
	}
	return names
}

// ReadChannel extracts every sample of the named channel, returning the raw
// decoded numbers and a bitset flagging which sample indices are marked
// invalid. Apply a channel's conversion chain (via Channel.Convert) to turn
// these into physical values; the index does not retain conversion blocks.
func (idx *Index) ReadChannel(name string) ([]float64, *bitset.BitSet, error) {
	extractor, err := index.NewChannelExtractor(idx.r, idx.idx, name)
	if err != nil {
		return nil, nil, err
	}
	return extractor.ReadAll()
}

// NewBufferedRangeReader wraps source with an LRU page cache sized to hold
// pageCount pages, suitable for repeated indexed reads against a byte
// source that only supports out-of-order range requests (e.g. HTTP).
func NewBufferedRangeReader(source utils.ReaderAt, pageCount int) (utils.ReaderAt, error) {
	return index.NewBufferedRangeReader(source, pageCount)
}
