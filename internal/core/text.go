package core

import (
	"bytes"

	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// TagTX and TagMD are the only two block types the text/metadata reader accepts.
const (
	TagTX = "##TX"
	TagMD = "##MD"
)

// ReadText follows link and returns the decoded text of a ##TX or ##MD
// block. A link of 0 means "absent" and yields ("", false, nil). Any other
// tag is an InvalidBlockError (§4.B).
func ReadText(r utils.ReaderAt, link uint64) (text string, present bool, err error) {
	if link == 0 {
		return "", false, nil
	}

	hdr, err := ReadBlockHeader(r, int64(link))
	if err != nil {
		return "", false, err
	}
	if err := hdr.ExpectTag(TagTX, TagMD); err != nil {
		return "", false, err
	}

	payload, err := hdr.ReadPayload(r)
	if err != nil {
		return "", false, err
	}

	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	return string(payload), true, nil
}

// ReadTextStrict is ReadText but returns InvalidDataError instead of
// ("", false, nil) when the link is absent, for call sites where text is
// mandatory (e.g. a conversion's referenced partial-conversion text).
func ReadTextStrict(r utils.ReaderAt, link uint64, what string) (string, error) {
	text, present, err := ReadText(r, link)
	if err != nil {
		return "", err
	}
	if !present {
		return "", errs.WrapInvalidData(what, errAbsentText)
	}
	return text, nil
}

var errAbsentText = absentTextError{}

type absentTextError struct{}

func (absentTextError) Error() string { return "required text link is absent" }
