package mdf4

import (
	"io"

	"github.com/mdf4go/mdf4/internal/convert"
	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/decode"
)

// Channel is a CN block: one signal within a channel group's record.
type Channel struct {
	channelGroup *ChannelGroup
	resolved     *core.ResolvedChannel
}

// Name returns the channel's name, always present (spec.md §4.C).
func (c *Channel) Name() string { return c.resolved.Name }

// Unit returns the channel's physical unit, or "" if absent.
func (c *Channel) Unit() string { return c.resolved.Unit }

// Comment returns the channel's comment text, or "" if absent.
func (c *Channel) Comment() string { return c.resolved.Comment }

// DataType returns the channel's raw storage type.
func (c *Channel) DataType() core.DataType { return c.resolved.Channel.DataType }

// IsMaster reports whether this channel is the group's master (x-axis) channel.
func (c *Channel) IsMaster() bool {
	return c.resolved.Channel.ChannelType == core.ChannelTypeMaster ||
		c.resolved.Channel.ChannelType == core.ChannelTypeVirtualMaster
}

// Source describes a channel's acquisition provenance, resolved from an SI
// block (a supplemented feature: spec.md's data model names the CG/CN
// source links but does not spell out SI's payload).
type Source struct {
	Name    string
	Path    string
	Comment string

	SourceType core.SourceType
	BusType    core.BusType
}

// Source returns the channel's acquisition source, or nil if absent.
func (c *Channel) Source() *Source {
	rs := c.resolved.Source
	if rs == nil {
		return nil
	}
	return &Source{
		Name:       rs.Name,
		Path:       rs.Path,
		Comment:    rs.Comment,
		SourceType: rs.Source.SourceType,
		BusType:    rs.Source.BusType,
	}
}

// Convert applies this channel's conversion chain to a raw decoded numeric
// value.
func (c *Channel) Convert(raw float64) (convert.Result, error) {
	return convert.Apply(c.channelGroup.dataGroup.file.r, c.resolved.Conversions, raw)
}

// ConvertText applies this channel's conversion chain to a raw decoded
// string value, for channels whose conversion is text-keyed
// (text-to-value, text-to-text).
func (c *Channel) ConvertText(raw string) (convert.Result, error) {
	return convert.ApplyText(c.channelGroup.dataGroup.file.r, c.resolved.Conversions, raw)
}

// Reader returns an iterator over this channel's decoded, physically
// converted samples, reading lazily from the file's byte source (§4.E).
func (c *Channel) Reader() (*ChannelReader, error) {
	plan, err := decode.BuildPlan(c.resolved.Channel, c.channelGroup.resolved.Group)
	if err != nil {
		return nil, err
	}
	dg := c.channelGroup.dataGroup.resolved
	it := decode.NewRecordIterator(c.channelGroup.dataGroup.file.r, dg.Fragments, dg.DataGroup, c.channelGroup.resolved.Group)
	return &ChannelReader{channel: c, plan: plan, iter: it}, nil
}

// Sample is one decoded, physically converted value plus its invalidation flag.
type Sample struct {
	convert.Result
	Invalid bool
}

// ChannelReader lazily decodes and converts one channel's samples, in
// record order, without materializing the whole channel in memory.
type ChannelReader struct {
	channel *Channel
	plan    *decode.Plan
	iter    *decode.RecordIterator
}

// Next returns the next sample, or io.EOF once records are exhausted.
func (cr *ChannelReader) Next() (Sample, error) {
	record, err := cr.iter.Next()
	if err != nil {
		return Sample{}, err
	}
	invalid := cr.plan.IsInvalid(record)

	if cr.plan.DataType.IsString() {
		text, err := cr.plan.ExtractString(record)
		if err != nil {
			return Sample{}, err
		}
		result, err := cr.channel.ConvertText(text)
		if err != nil {
			return Sample{}, err
		}
		return Sample{Result: result, Invalid: invalid}, nil
	}

	raw, err := cr.plan.ExtractNumber(record)
	if err != nil {
		return Sample{}, err
	}
	result, err := cr.channel.Convert(raw)
	if err != nil {
		return Sample{}, err
	}
	return Sample{Result: result, Invalid: invalid}, nil
}

// Reset rewinds the reader to the channel group's first record.
func (cr *ChannelReader) Reset() { cr.iter.Reset() }

// ReadAll drains the reader into a slice, for channels known to fit in memory.
func (cr *ChannelReader) ReadAll() ([]Sample, error) {
	var out []Sample
	for {
		s, err := cr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}
