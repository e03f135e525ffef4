package core

import (
	"encoding/binary"
	"fmt"
)

// PlanBlockSize returns the total on-disk size (header + links + payload,
// padded to an 8-byte boundary) a block with linkCount links and a
// payloadLen-byte payload would occupy.
func PlanBlockSize(linkCount, payloadLen int) uint64 {
	raw := uint64(blockHeaderSize) + uint64(linkCount)*8 + uint64(payloadLen)
	return Align8(raw)
}

// EncodeBlock serializes tag, links, and payload into one padded,
// 8-byte-aligned buffer ready to be written at an allocated offset. Padding
// bytes are zero, matching the writer's no-rewrite-except-placeholders
// discipline (§4.F).
func EncodeBlock(tag string, links []uint64, payload []byte) ([]byte, error) {
	if len(tag) != 4 || tag[0:2] != "##" {
		return nil, fmt.Errorf("invalid block tag %q: must be 4 ASCII bytes starting with \"##\"", tag)
	}

	total := PlanBlockSize(len(links), len(payload))
	buf := make([]byte, total)

	copy(buf[0:4], tag)
	binary.LittleEndian.PutUint64(buf[8:16], total)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(links)))

	off := blockHeaderSize
	for _, link := range links {
		binary.LittleEndian.PutUint64(buf[off:off+8], link)
		off += 8
	}
	copy(buf[off:], payload)

	return buf, nil
}
