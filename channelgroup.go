package mdf4

import "github.com/mdf4go/mdf4/internal/core"

// ChannelGroup is a CG block: a fixed record layout shared by a set of
// channels.
type ChannelGroup struct {
	dataGroup *DataGroup
	resolved  *core.ResolvedGroup
	channels  []*Channel
}

// AcquisitionName returns the channel group's acquisition name, or "" if absent.
func (cg *ChannelGroup) AcquisitionName() string {
	return cg.resolved.AcqName
}

// CycleCount returns the number of records recorded for this channel group.
func (cg *ChannelGroup) CycleCount() uint64 {
	return cg.resolved.Group.CycleCount
}

// RecordSize returns data_bytes + invalidation_bytes for this group's records.
func (cg *ChannelGroup) RecordSize() uint64 {
	return cg.resolved.Group.RecordSize()
}

// Channels returns this group's channels, in CN-link order.
func (cg *ChannelGroup) Channels() []*Channel {
	if cg.channels == nil {
		for _, rc := range cg.resolved.Channels {
			cg.channels = append(cg.channels, &Channel{channelGroup: cg, resolved: rc})
		}
	}
	return cg.channels
}

// SampleReductionCount returns the number of SR block stubs resolved for
// this group. Per-sample reduced values (min/max/avg over a time interval)
// are not decoded by this library; only the number of SR blocks in the
// chain is surfaced.
func (cg *ChannelGroup) SampleReductionCount() int {
	return len(cg.resolved.SampleReductions)
}
