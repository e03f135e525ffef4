// Package index implements the §4.G streaming index: a compact,
// persistable directory of channel byte ranges that lets a range reader
// extract a named channel's samples without re-walking the block graph, and
// a buffered LRU page cache (internal/index/rangereader.go) for sources
// that only support out-of-order byte-range reads (e.g. HTTP range
// requests against a remote file).
package index

import "github.com/mdf4go/mdf4/internal/core"

// FragmentRange is one contiguous byte run of a channel group's record
// stream, mirroring core.DataFragment but persisted by value.
type FragmentRange struct {
	Offset int64  `yaml:"offset"`
	Length uint64 `yaml:"length"`
}

// GroupEntry is one channel group's record geometry and data fragments.
type GroupEntry struct {
	DataGroupIndex int             `yaml:"data_group"`
	RecordSize     uint64          `yaml:"record_size"`
	DataBytes      uint32          `yaml:"data_bytes"`
	RecordIDSize   uint8           `yaml:"record_id_size"`
	RecordID       uint64          `yaml:"record_id"`
	CycleCount     uint64          `yaml:"cycle_count"`
	Fragments      []FragmentRange `yaml:"fragments"`
}

// ChannelEntry is one channel's name and extraction geometry, pointing at
// its owning GroupEntry by index.
type ChannelEntry struct {
	Name       string   `yaml:"name"`
	Group      int      `yaml:"group"`
	ByteOffset uint32   `yaml:"byte_offset"`
	BitOffset  uint8    `yaml:"bit_offset"`
	BitCount   uint32   `yaml:"bit_count"`
	DataType   core.DataType `yaml:"data_type"`

	HasInvalidationBit bool   `yaml:"has_invalidation_bit,omitempty"`
	InvalidationBitPos uint32 `yaml:"invalidation_bit_pos,omitempty"`
	InvalidationBytes  uint32 `yaml:"invalidation_bytes,omitempty"`
}

// Index is the full persistable directory for one MDF4 file.
type Index struct {
	SourceVersion int            `yaml:"source_version"`
	Groups        []GroupEntry   `yaml:"groups"`
	Channels      []ChannelEntry `yaml:"channels"`
}

// ChannelByName returns the entry for name and reports whether it exists.
// The first match wins when channel names collide across groups, matching
// how most MDF4 tooling resolves unqualified name lookups.
func (idx *Index) ChannelByName(name string) (ChannelEntry, bool) {
	for _, c := range idx.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return ChannelEntry{}, false
}
