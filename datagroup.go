package mdf4

import "github.com/mdf4go/mdf4/internal/core"

// DataGroup is a DG block: a data stream shared by one or more channel
// groups.
type DataGroup struct {
	file     *File
	resolved *core.ResolvedDataGroup
	groups   []*ChannelGroup
}

// RecordIDSize returns the width, in bytes, of the record-ID prefix each
// record carries when this data group multiplexes more than one channel
// group's records into one stream. Zero means no prefix (one channel group).
func (dg *DataGroup) RecordIDSize() uint8 {
	return dg.resolved.DataGroup.RecordIDSize
}

// ChannelGroups returns this data group's channel groups, in file order.
func (dg *DataGroup) ChannelGroups() []*ChannelGroup {
	if dg.groups == nil {
		for _, rg := range dg.resolved.Groups {
			dg.groups = append(dg.groups, &ChannelGroup{dataGroup: dg, resolved: rg})
		}
	}
	return dg.groups
}
