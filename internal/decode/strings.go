package decode

import (
	"bytes"
	"fmt"
	"unicode/utf16"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
)

// decodeString converts a raw string field to a Go string per its MDF4
// charset, trimming at the first NUL terminator if one appears.
func decodeString(field []byte, dt core.DataType) (string, error) {
	switch dt {
	case core.DataTypeStringLatin1:
		if i := bytes.IndexByte(field, 0); i >= 0 {
			field = field[:i]
		}
		return latin1ToUTF8(field), nil

	case core.DataTypeStringUTF8:
		if i := bytes.IndexByte(field, 0); i >= 0 {
			field = field[:i]
		}
		return string(field), nil

	case core.DataTypeStringUTF16LE, core.DataTypeStringUTF16BE:
		return decodeUTF16(field, dt == core.DataTypeStringUTF16BE)

	default:
		return "", errs.WrapInvalidData("string decode", fmt.Errorf("data type %d is not a string type", dt))
	}
}

func latin1ToUTF8(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func decodeUTF16(field []byte, bigEndian bool) (string, error) {
	if len(field)%2 != 0 {
		field = field[:len(field)-1]
	}
	units := make([]uint16, 0, len(field)/2)
	for i := 0; i+1 < len(field); i += 2 {
		var u uint16
		if bigEndian {
			u = uint16(field[i])<<8 | uint16(field[i+1])
		} else {
			u = uint16(field[i]) | uint16(field[i+1])<<8
		}
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), nil
}
