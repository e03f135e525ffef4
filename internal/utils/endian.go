package utils

import "encoding/binary"

// ReadUint64 reads a 64-bit value in the given byte order at the given offset.
// Block headers, links, and lengths are always little-endian per the
// format; record payload byte order is a per-channel property handled
// separately by the record decoder.
func ReadUint64(r ReaderAt, offset int64, order binary.ByteOrder) (uint64, error) {
	buf := GetBuffer(8)
	defer ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return order.Uint64(buf), nil
}

// ReadUint32 reads a 32-bit value at the given offset.
func ReadUint32(r ReaderAt, offset int64, order binary.ByteOrder) (uint32, error) {
	buf := GetBuffer(4)
	defer ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return order.Uint32(buf), nil
}

// ReverseBytes returns a copy of b with byte order reversed. Used to turn a
// big-endian record field into the little-endian layout the bit extractor
// assumes, without disturbing the in-byte (MSB=0) bit numbering.
func ReverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// ReaderAt is a simplified interface for io.ReaderAt.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}
