package writer

import (
	"fmt"
	"io"
	"os"
)

// FileWriter wraps an os.File for writing MDF4 files: space allocation
// tracking, write-at-address operations, and flush control.
//
// Not thread-safe; callers must synchronize access.
type FileWriter struct {
	file      *os.File
	allocator *Allocator
}

// CreateMode specifies the file creation behavior.
type CreateMode int

const (
	// ModeTruncate creates a new file, truncating if it exists.
	ModeTruncate CreateMode = iota

	// ModeExclusive creates a new file, failing if it exists.
	ModeExclusive
)

// NewFileWriter creates a writer for a new MDF4 file. initialOffset is the
// first address the allocator may hand out, typically IDSize+headerBlockSize
// once the ID and HD prologue has been written.
func NewFileWriter(filename string, mode CreateMode, initialOffset uint64) (*FileWriter, error) {
	var osFile *os.File
	var err error

	switch mode {
	case ModeTruncate:
		osFile, err = os.Create(filename)
	case ModeExclusive:
		osFile, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &FileWriter{
		file:      osFile,
		allocator: NewAllocator(initialOffset),
	}, nil
}

// Allocate reserves size bytes at the end of the file. The space is not
// zeroed; the caller must write data there.
func (w *FileWriter) Allocate(size uint64) (uint64, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.allocator.Allocate(size)
}

// WriteAt writes data at a specific file offset.
func (w *FileWriter) WriteAt(data []byte, offset int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	if len(data) == 0 {
		return 0, nil
	}
	n, err := w.file.WriteAt(data, offset)
	if err != nil {
		return n, fmt.Errorf("write at address %d failed: %w", offset, err)
	}
	if n != len(data) {
		return n, fmt.Errorf("incomplete write at address %d: wrote %d of %d bytes", offset, n, len(data))
	}
	return n, nil
}

// WriteAtAddress is WriteAt with a uint64 address.
func (w *FileWriter) WriteAtAddress(data []byte, addr uint64) error {
	_, err := w.WriteAt(data, int64(addr))
	return err
}

// ReadAt reads data back at a specific address, for patching blocks already
// written (e.g. a DG's Next link once the following DG is known).
func (w *FileWriter) ReadAt(buf []byte, addr int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.file.ReadAt(buf, addr)
}

// EndOfFile returns the address of the next allocation.
func (w *FileWriter) EndOfFile() uint64 {
	return w.allocator.EndOfFile()
}

// Flush commits all writes to disk.
func (w *FileWriter) Flush() error {
	if w.file == nil {
		return fmt.Errorf("writer is closed")
	}
	return w.file.Sync()
}

// Close closes the underlying file without flushing; call Flush first.
func (w *FileWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// File returns the underlying *os.File for advanced use cases.
func (w *FileWriter) File() *os.File {
	return w.file
}

// Allocator returns the space allocator.
func (w *FileWriter) Allocator() *Allocator {
	return w.allocator
}

// WriteAtWithAllocation allocates len(data) bytes and writes data there,
// returning the address.
func (w *FileWriter) WriteAtWithAllocation(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("cannot write empty data")
	}
	addr, err := w.Allocate(uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if err := w.WriteAtAddress(data, addr); err != nil {
		return 0, err
	}
	return addr, nil
}

// Seek implements io.Seeker for callers that stream record bytes directly
// rather than going through Allocate.
func (w *FileWriter) Seek(offset int64, whence int) (int64, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.file.Seek(offset, whence)
}

var (
	_ io.ReaderAt = (*FileWriter)(nil)
	_ io.WriterAt = (*FileWriter)(nil)
)
