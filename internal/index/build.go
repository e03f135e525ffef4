package index

import (
	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/utils"
)

// Build constructs an Index from an already-walked File. Each channel
// within each channel group becomes one ChannelEntry pointing at a shared
// GroupEntry, so repeated channels in the same group don't duplicate
// fragment lists.
//
// This is the "from parsed tree" construction mode; BuildStreaming below is
// the single-pass mode that never materializes a core.File at all.
func Build(f *core.File) *Index {
	idx := &Index{SourceVersion: f.ID.VersionNumber}

	for dgi, dg := range f.Groups {
		for _, rg := range dg.Groups {
			groupIdx := len(idx.Groups)
			idx.Groups = append(idx.Groups, GroupEntry{
				DataGroupIndex: dgi,
				RecordSize:     rg.Group.RecordSize(),
				DataBytes:      rg.Group.DataBytes,
				RecordIDSize:   dg.DataGroup.RecordIDSize,
				RecordID:       rg.Group.RecordID,
				CycleCount:     rg.Group.CycleCount,
				Fragments:      toFragmentRanges(dg.Fragments),
			})

			for _, rc := range rg.Channels {
				idx.Channels = append(idx.Channels, ChannelEntry{
					Name:                rc.Name,
					Group:               groupIdx,
					ByteOffset:          rc.Channel.ByteOffset,
					BitOffset:           rc.Channel.BitOffset,
					BitCount:            rc.Channel.BitCount,
					DataType:            rc.Channel.DataType,
					HasInvalidationBit:  rc.Channel.HasValidInvalidationBit(),
					InvalidationBitPos:  rc.Channel.InvalidationBitPos,
					InvalidationBytes:   rg.Group.InvalidationBytes,
				})
			}
		}
	}
	return idx
}

// BuildStreaming walks r's block graph and builds an Index directly,
// without retaining resolved Channel/ChannelGroup structs once their
// geometry has been copied out — the single-pass mode referenced by
// SPEC_FULL.md for indexing files too large to hold fully parsed in memory.
// Each channel's name text is still read (it's small relative to sample
// data); unit and comment text are not, and CC chains are not resolved
// since the index only serves byte extraction, not physical conversion.
func BuildStreaming(r utils.ReaderAt) (*Index, error) {
	id, err := core.ReadID(r)
	if err != nil {
		return nil, err
	}
	hd, err := core.ReadHeader(r, core.IDSize)
	if err != nil {
		return nil, err
	}

	idx := &Index{SourceVersion: id.VersionNumber}

	for dgi, dgOffset := 0, hd.FirstDataGroup; dgOffset != 0; dgi++ {
		dg, err := core.ReadDataGroup(r, dgOffset)
		if err != nil {
			return nil, err
		}
		frags, err := core.ResolveDataFragments(r, dg.Data)
		if err != nil {
			return nil, err
		}
		fragRanges := toFragmentRanges(frags)

		for cgOffset := dg.FirstChannelGroup; cgOffset != 0; {
			cg, err := core.ReadChannelGroup(r, cgOffset)
			if err != nil {
				return nil, err
			}
			groupIdx := len(idx.Groups)
			idx.Groups = append(idx.Groups, GroupEntry{
				DataGroupIndex: dgi,
				RecordSize:   cg.RecordSize(),
				DataBytes:    cg.DataBytes,
				RecordIDSize: dg.RecordIDSize,
				RecordID:     cg.RecordID,
				CycleCount:   cg.CycleCount,
				Fragments:    fragRanges,
			})

			for cnOffset := cg.FirstChannel; cnOffset != 0; {
				cn, err := core.ReadChannel(r, cnOffset)
				if err != nil {
					return nil, err
				}
				name, _, err := core.ReadText(r, cn.NameLink)
				if err != nil {
					return nil, err
				}
				idx.Channels = append(idx.Channels, ChannelEntry{
					Name:                name,
					Group:               groupIdx,
					ByteOffset:          cn.ByteOffset,
					BitOffset:           cn.BitOffset,
					BitCount:            cn.BitCount,
					DataType:            cn.DataType,
					HasInvalidationBit:  cn.HasValidInvalidationBit(),
					InvalidationBitPos:  cn.InvalidationBitPos,
					InvalidationBytes:   cg.InvalidationBytes,
				})
				cnOffset = cn.Next
			}
			cgOffset = cg.Next
		}
		dgOffset = dg.Next
	}
	return idx, nil
}

func toFragmentRanges(frags []core.DataFragment) []FragmentRange {
	out := make([]FragmentRange, len(frags))
	for i, f := range frags {
		out[i] = FragmentRange{Offset: f.Offset, Length: f.Length}
	}
	return out
}
