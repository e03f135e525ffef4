package index

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/mdf4go/mdf4/internal/errs"
	"gopkg.in/yaml.v3"
)

// envelope wraps the serialized index with an xxhash checksum of its own
// body, so Load can detect truncated or hand-edited index files before any
// of their byte ranges are trusted.
type envelope struct {
	Checksum uint64 `yaml:"checksum"`
	Body     string `yaml:"body"`
}

// Save serializes idx to w as YAML, matching the teacher corpus's
// preference for human-diffable persisted state over a binary format.
func Save(idx *Index, w io.Writer) error {
	body, err := yaml.Marshal(idx)
	if err != nil {
		return errs.WrapInvalidData("index serialization", err)
	}
	env := envelope{Checksum: xxhash.Sum64(body), Body: string(body)}
	out, err := yaml.Marshal(env)
	if err != nil {
		return errs.WrapInvalidData("index envelope serialization", err)
	}
	if _, err := w.Write(out); err != nil {
		return errs.WrapIO("writing index", err)
	}
	return nil
}

// Load reads and verifies an index previously written by Save.
func Load(r io.Reader) (*Index, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.WrapIO("reading index", err)
	}

	var env envelope
	if err := yaml.Unmarshal(raw, &env); err != nil {
		return nil, errs.WrapInvalidData("index envelope", err)
	}
	if xxhash.Sum64([]byte(env.Body)) != env.Checksum {
		return nil, errs.WrapInvalidData("index checksum", fmt.Errorf("checksum mismatch: index file is corrupt or was hand-edited"))
	}

	var idx Index
	if err := yaml.Unmarshal([]byte(env.Body), &idx); err != nil {
		return nil, errs.WrapInvalidData("index body", err)
	}
	return &idx, nil
}

// Equal reports whether two indexes serialize identically, used by tests
// that round-trip Save/Load.
func Equal(a, b *Index) (bool, error) {
	ab, err := yaml.Marshal(a)
	if err != nil {
		return false, err
	}
	bb, err := yaml.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}
