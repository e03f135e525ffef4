package core

import (
	"encoding/binary"
	"strings"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// ID block layout (§3): a fixed 64-byte prefix at offset 0, outside the
// normal block envelope (no tag/links/padding machinery applies to it).
const (
	IDSize = 64

	// IDSignature is the required 8-byte file identifier.
	IDSignature = "MDF     "

	// MinSupportedVersion and MaxSupportedVersion bound the numeric
	// version field (hundredths), per §3's ID invariant.
	MinSupportedVersion = 400
	MaxSupportedVersion = 411
)

// ID is the decoded identification block.
type ID struct {
	VersionString string
	ProgramID     string
	VersionNumber int // hundredths, e.g. 411 for "4.11"
	ByteOrder     binary.ByteOrder
}

// ReadID decodes the ID block at offset 0, rejecting a bad signature with
// FileIdentifierError and an out-of-range version with FileVersioningError.
func ReadID(r utils.ReaderAt) (*ID, error) {
	buf := utils.GetBuffer(IDSize)
	defer utils.ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, errs.WrapIO("reading ID block", err)
	}

	fileID := string(buf[0:8])
	if fileID != IDSignature {
		return nil, &errs.FileIdentifierError{Found: fileID}
	}

	versionNumber := int(binary.LittleEndian.Uint16(buf[28:30]))
	if versionNumber < MinSupportedVersion || versionNumber > MaxSupportedVersion {
		return nil, &errs.FileVersioningError{Version: versionNumber}
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if buf[30] == 1 {
		order = binary.BigEndian
	}

	return &ID{
		VersionString: strings.TrimRight(string(buf[8:16]), " \x00"),
		ProgramID:     strings.TrimRight(string(buf[16:24]), " \x00"),
		VersionNumber: versionNumber,
		ByteOrder:     order,
	}, nil
}

// EncodeID serializes the 64-byte ID block for versionNumber (hundredths)
// and programID, always as little-endian (the only byte order this
// library's writer emits).
func EncodeID(versionNumber int, versionString, programID string) []byte {
	buf := make([]byte, IDSize)
	copy(buf[0:8], IDSignature)
	copy(buf[8:16], padRight(versionString, 8))
	copy(buf[16:24], padRight(programID, 8))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(versionNumber))
	buf[30] = 0 // little-endian
	return buf
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
