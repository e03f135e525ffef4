package writer

import (
	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
)

// writeGroups allocates and writes every data group, channel group, channel,
// and data block, backpatching each level's "Next" link once its successor's
// address is known, and wires header.FirstDataGroup to the first data
// group written.
func (w *Writer) writeGroups() error {
	var prevDGPatchOffset int64 = -1

	for _, dg := range w.dataGroups {
		if err := w.writeChannelGroups(dg); err != nil {
			return err
		}

		var dataLink uint64
		if len(dg.groups) > 0 {
			dataLink = dg.groups[0].dtOffset
		}
		enc, err := core.EncodeDataGroup(&core.DataGroup{
			FirstChannelGroup: firstOffset(dg.groups, func(g *pendingGroup) uint64 { return g.offset }),
			Data:              dataLink,
			RecordIDSize:      dg.recordIDSize,
		})
		if err != nil {
			return errs.WrapInvalidData("encoding DG block", err)
		}
		addr, err := w.fw.WriteAtWithAllocation(enc)
		if err != nil {
			return err
		}
		dg.offset = addr

		if prevDGPatchOffset >= 0 {
			if err := patchLink(w.fw, prevDGPatchOffset, addr); err != nil {
				return err
			}
		} else {
			w.header.FirstDataGroup = addr
		}
		prevDGPatchOffset = dgNextLinkOffset(addr)
	}
	return nil
}

func (w *Writer) writeChannelGroups(dg *pendingDataGroup) error {
	var prevPatchOffset int64 = -1

	for _, group := range dg.groups {
		if err := w.writeChannels(group); err != nil {
			return err
		}
		if err := w.writeRecords(group); err != nil {
			return err
		}

		enc, err := core.EncodeChannelGroup(&core.ChannelGroup{
			FirstChannel:      firstOffset(group.channels, func(c *pendingChannel) uint64 { return c.offset }),
			CycleCount:        uint64(len(group.records)),
			DataBytes:         group.dataBytes,
			InvalidationBytes: group.invalidationBytes,
		})
		if err != nil {
			return errs.WrapInvalidData("encoding CG block", err)
		}
		addr, err := w.fw.WriteAtWithAllocation(enc)
		if err != nil {
			return err
		}
		group.offset = addr

		if prevPatchOffset >= 0 {
			if err := patchLink(w.fw, prevPatchOffset, addr); err != nil {
				return err
			}
		}
		prevPatchOffset = cgNextLinkOffset(addr)
	}
	return nil
}

func (w *Writer) writeChannels(group *pendingGroup) error {
	var prevPatchOffset int64 = -1

	for _, ch := range group.channels {
		var convLink uint64
		if ch.spec.Conversion != nil {
			enc, err := core.EncodeConversion(ch.spec.Conversion)
			if err != nil {
				return errs.WrapInvalidData("encoding CC block", err)
			}
			addr, err := w.fw.WriteAtWithAllocation(enc)
			if err != nil {
				return err
			}
			convLink = addr
		}

		var nameLink, unitLink, commentLink uint64
		var err error
		if nameLink, err = w.writeText(ch.spec.Name); err != nil {
			return err
		}
		if unitLink, err = w.writeText(ch.spec.Unit); err != nil {
			return err
		}
		if commentLink, err = w.writeText(ch.spec.Comment); err != nil {
			return err
		}

		enc, err := core.EncodeChannel(&core.Channel{
			NameLink:           nameLink,
			UnitLink:           unitLink,
			CommentLink:        commentLink,
			Conversion:         convLink,
			ChannelType:        ch.spec.ChannelType,
			SyncType:           ch.spec.SyncType,
			DataType:           ch.spec.DataType,
			ByteOffset:         ch.spec.ByteOffset,
			BitCount:           ch.spec.BitCount,
			InvalidationBitPos: ch.spec.InvalidationBitPos,
			Flags:              invalidationFlags(ch.spec.HasInvalidationBit),
		})
		if err != nil {
			return errs.WrapInvalidData("encoding CN block", err)
		}
		addr, err := w.fw.WriteAtWithAllocation(enc)
		if err != nil {
			return err
		}
		ch.offset = addr

		if prevPatchOffset >= 0 {
			if err := patchLink(w.fw, prevPatchOffset, addr); err != nil {
				return err
			}
		}
		prevPatchOffset = cnNextLinkOffset(addr)
	}
	return nil
}

func (w *Writer) writeRecords(group *pendingGroup) error {
	var payload []byte
	for _, rec := range group.records {
		payload = append(payload, rec...)
	}
	enc, err := core.EncodeBlock(core.TagDT, nil, payload)
	if err != nil {
		return errs.WrapInvalidData("encoding DT block", err)
	}
	addr, err := w.fw.WriteAtWithAllocation(enc)
	if err != nil {
		return err
	}
	group.dtOffset = addr
	return nil
}

func (w *Writer) writeText(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	enc, err := core.EncodeBlock(core.TagTX, nil, append([]byte(s), 0))
	if err != nil {
		return 0, errs.WrapInvalidData("encoding TX block", err)
	}
	return w.fw.WriteAtWithAllocation(enc)
}

func invalidationFlags(has bool) uint32 {
	if has {
		return core.ChannelFlagInvalidationBitValid
	}
	return 0
}

func firstOffset[T any](items []T, get func(T) uint64) uint64 {
	if len(items) == 0 {
		return 0
	}
	return get(items[0])
}

// patchLink overwrites the 8-byte link slot at absolute file offset
// linkFieldOffset with target (little-endian), the backpatch step the teacher uses for forward object
// header continuation addresses, generalized to any block's Next link.
func patchLink(fw *FileWriter, linkFieldOffset int64, target uint64) error {
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = byte(target >> (8 * i))
	}
	return fw.WriteAtAddress(buf, uint64(linkFieldOffset))
}

// dgNextLinkOffset, cgNextLinkOffset, and cnNextLinkOffset return the file
// offset of a just-written block's first link field ("Next"), which is
// always the first 8 bytes following the 24-byte block header.
func dgNextLinkOffset(blockOffset uint64) int64 { return int64(blockOffset) + core.BlockHeaderSize }
func cgNextLinkOffset(blockOffset uint64) int64 { return int64(blockOffset) + core.BlockHeaderSize }
func cnNextLinkOffset(blockOffset uint64) int64 { return int64(blockOffset) + core.BlockHeaderSize }
