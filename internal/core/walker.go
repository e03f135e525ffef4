package core

import (
	"fmt"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// ResolvedChannel is a CN block plus its eagerly-resolved name, unit,
// comment, source, and conversion chain.
type ResolvedChannel struct {
	Channel *Channel

	Name    string
	Unit    string
	Comment string

	Source      *ResolvedSource
	Conversions []*Conversion // chain, outermost first; empty means identity
}

// ResolvedSource is an SI block plus its resolved name, path, and comment text.
type ResolvedSource struct {
	Source *Source

	Name    string
	Path    string
	Comment string
}

// ResolvedGroup is a CG block plus its resolved channels, in CN-link order.
type ResolvedGroup struct {
	Group            *ChannelGroup
	AcqName          string
	Channels         []*ResolvedChannel
	SampleReductions []*SampleReduction
}

// ResolvedDataGroup is a DG block plus its resolved channel groups and data
// fragments.
type ResolvedDataGroup struct {
	DataGroup *DataGroup
	Groups    []*ResolvedGroup
	Fragments []DataFragment
}

// File is the fully walked block graph: every DG/CG/CN reachable from the
// header, with names, units, comments, sources, and conversion chains
// resolved eagerly so record decoding never touches the reader again for
// metadata.
type File struct {
	ID     *ID
	Header *Header
	Groups []*ResolvedDataGroup
}

// maxConversionChainDepth bounds how many CC blocks are resolved through
// reference links (cycles are stopped by the visited set); real files
// never nest more than a handful deep.
const maxConversionChainDepth = 64

// Walk parses the ID and HD blocks and follows every link reachable from
// them, producing a fully resolved File.
func Walk(r utils.ReaderAt) (*File, error) {
	id, err := ReadID(r)
	if err != nil {
		return nil, err
	}

	hd, err := ReadHeader(r, IDSize)
	if err != nil {
		return nil, err
	}

	f := &File{ID: id, Header: hd}

	for dgOffset := hd.FirstDataGroup; dgOffset != 0; {
		dg, err := ReadDataGroup(r, dgOffset)
		if err != nil {
			return nil, err
		}
		rdg, err := walkDataGroup(r, dg)
		if err != nil {
			return nil, err
		}
		f.Groups = append(f.Groups, rdg)
		dgOffset = dg.Next
	}
	return f, nil
}

func walkDataGroup(r utils.ReaderAt, dg *DataGroup) (*ResolvedDataGroup, error) {
	frags, err := ResolveDataFragments(r, dg.Data)
	if err != nil {
		return nil, err
	}

	rdg := &ResolvedDataGroup{DataGroup: dg, Fragments: frags}

	for cgOffset := dg.FirstChannelGroup; cgOffset != 0; {
		cg, err := ReadChannelGroup(r, cgOffset)
		if err != nil {
			return nil, err
		}
		rg, err := walkChannelGroup(r, cg)
		if err != nil {
			return nil, err
		}
		rdg.Groups = append(rdg.Groups, rg)
		cgOffset = cg.Next
	}
	return rdg, nil
}

func walkChannelGroup(r utils.ReaderAt, cg *ChannelGroup) (*ResolvedGroup, error) {
	acqName, _, err := ReadText(r, cg.AcqNameLink)
	if err != nil {
		return nil, err
	}

	reductions, err := walkSampleReductions(r, cg.FirstSampleReduction)
	if err != nil {
		return nil, err
	}

	rg := &ResolvedGroup{Group: cg, AcqName: acqName, SampleReductions: reductions}

	for cnOffset := cg.FirstChannel; cnOffset != 0; {
		cn, err := ReadChannel(r, cnOffset)
		if err != nil {
			return nil, err
		}
		rc, err := walkChannel(r, cn)
		if err != nil {
			return nil, err
		}
		rg.Channels = append(rg.Channels, rc)
		cnOffset = cn.Next
	}
	return rg, nil
}

func walkChannel(r utils.ReaderAt, cn *Channel) (*ResolvedChannel, error) {
	name, present, err := ReadText(r, cn.NameLink)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, errs.WrapInvalidData("channel name", fmt.Errorf("channel at offset %d has no name", cn.Offset))
	}

	unit, _, err := ReadText(r, cn.UnitLink)
	if err != nil {
		return nil, err
	}
	comment, _, err := ReadText(r, cn.CommentLink)
	if err != nil {
		return nil, err
	}

	var source *ResolvedSource
	if cn.SourceLink != 0 {
		si, err := ReadSource(r, cn.SourceLink)
		if err != nil {
			return nil, err
		}
		siName, _, err := ReadText(r, si.NameLink)
		if err != nil {
			return nil, err
		}
		siPath, _, err := ReadText(r, si.PathLink)
		if err != nil {
			return nil, err
		}
		siComment, _, err := ReadText(r, si.CommentLink)
		if err != nil {
			return nil, err
		}
		source = &ResolvedSource{Source: si, Name: siName, Path: siPath, Comment: siComment}
	}

	chain, err := resolveConversionChain(r, cn.Conversion)
	if err != nil {
		return nil, err
	}

	return &ResolvedChannel{
		Channel:     cn,
		Name:        name,
		Unit:        unit,
		Comment:     comment,
		Source:      source,
		Conversions: chain,
	}, nil
}

// resolveConversionChain eagerly reads the channel's top-level CC block and
// every CC it transitively references through Refs, so internal/convert
// never needs a reader to walk nested conversions. The cycle guard exists
// because CC reference links are links like any other and a hand-crafted
// file can loop them.
func resolveConversionChain(r utils.ReaderAt, link uint64) ([]*Conversion, error) {
	if link == 0 {
		return nil, nil
	}
	var chain []*Conversion
	visited := map[uint64]bool{}
	queue := []uint64{link}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == 0 || visited[cur] {
			continue
		}
		if len(chain) >= maxConversionChainDepth {
			return nil, errs.WrapInvalidData("CC chain", fmt.Errorf("conversion chain exceeds %d entries", maxConversionChainDepth))
		}
		visited[cur] = true

		cc, err := ReadConversion(r, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cc)
		// Per §4.D, value-range-to-value (type 5) is the one conversion kind
		// whose Refs may point at nested CC blocks rather than TX/MD text;
		// every other type's Refs are text links, which internal/convert
		// resolves itself via ReadText. internal/convert's current
		// value-range-to-value reader only evaluates literal range/value
		// triples from Params and does not consume these nested CCs (see
		// DESIGN.md); they are still walked here so a well-formed chain is
		// available if that support is added later.
		if cc.Type == ConversionValueRangeToValue {
			for _, ref := range cc.Refs {
				queue = append(queue, ref)
			}
		}
	}
	return chain, nil
}
