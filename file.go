// Package mdf4 implements a reader and writer for the ASAM MDF4
// ("Measurement Data Format v4") binary file format: a block-graph parser,
// a bit-accurate record decoder with a physical-value conversion pipeline,
// and a streaming index for channel extraction from files larger than
// memory.
package mdf4

import (
	"os"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/index"
	"github.com/mdf4go/mdf4/internal/utils"
)

// File is an opened MDF4 file: its parsed block graph plus the underlying
// byte source. The byte source may be any utils.ReaderAt (a memory-mapped
// file, an HTTP range-request client, ...); Open is a convenience
// constructor over an os.File.
type File struct {
	r      utils.ReaderAt
	tree   *core.File
	groups []*DataGroup
}

// Open opens filename and parses its block graph. The returned File owns
// the underlying os.File; call Close when done.
func Open(filename string) (*File, error) {
	//nolint:gosec // caller-provided path is the whole point of a file-format library
	f, err := os.Open(filename)
	if err != nil {
		return nil, errs.WrapIO("opening file", err)
	}
	file, err := OpenReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return file, nil
}

// OpenReader parses the block graph of an already-open byte source. Close
// releases r only if r implements io.Closer; callers supplying their own
// byte source remain responsible for it otherwise.
func OpenReader(r utils.ReaderAt) (*File, error) {
	tree, err := core.Walk(r)
	if err != nil {
		return nil, err
	}

	f := &File{r: r, tree: tree}
	for _, rdg := range tree.Groups {
		f.groups = append(f.groups, &DataGroup{file: f, resolved: rdg})
	}
	return f, nil
}

// Close releases the underlying byte source, if it is closeable. Safe to
// call more than once.
func (f *File) Close() error {
	if f.r == nil {
		return nil
	}
	closer, ok := f.r.(interface{ Close() error })
	f.r = nil
	if ok {
		return closer.Close()
	}
	return nil
}

// StartTime returns the recording start time as nanoseconds since the Unix
// epoch, per the HD block.
func (f *File) StartTime() int64 {
	return f.tree.Header.StartTimeNs
}

// VersionNumber returns the file's MDF version number in hundredths (e.g.
// 411 for "4.11").
func (f *File) VersionNumber() int {
	return f.tree.ID.VersionNumber
}

// DataGroups returns every data group reachable from the file header, in
// file order.
func (f *File) DataGroups() []*DataGroup {
	return f.groups
}

// Index builds a streaming index (§4.G) of every channel in this file, in
// one pass over the already-walked tree. The result is safe to persist via
// (*Index).Save and to share across goroutines once built.
func (f *File) Index() *Index {
	return &Index{idx: index.Build(f.tree), r: f.r}
}
