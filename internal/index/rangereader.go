package index

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// PageSize is the granularity BufferedRangeReader fetches and caches at, a
// compromise between request count (favoring large pages) and wasted bytes
// on small, scattered channel reads (favoring small pages).
const PageSize = 64 * 1024

// BufferedRangeReader adapts an arbitrary-order byte-range source (a local
// file, or anything else implementing utils.ReaderAt — including a remote
// HTTP-range-request client) into a page-cached utils.ReaderAt, so repeated
// small reads against the same region of a large file don't each round-trip
// to the underlying source.
type BufferedRangeReader struct {
	source utils.ReaderAt
	cache  *lru.Cache // pageIndex -> []byte
}

// NewBufferedRangeReader wraps source with an LRU cache holding up to
// pageCount pages of PageSize bytes each.
func NewBufferedRangeReader(source utils.ReaderAt, pageCount int) (*BufferedRangeReader, error) {
	if pageCount <= 0 {
		return nil, errs.WrapInvalidData("range reader", fmt.Errorf("pageCount must be positive, got %d", pageCount))
	}
	cache, err := lru.New(pageCount)
	if err != nil {
		return nil, errs.WrapInvalidData("range reader cache", err)
	}
	return &BufferedRangeReader{source: source, cache: cache}, nil
}

// ReadAt implements utils.ReaderAt, serving p from cached pages and
// fetching only the pages not already resident.
func (b *BufferedRangeReader) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		cur := off + int64(total)
		pageIdx := cur / PageSize
		pageStart := pageIdx * PageSize

		page, err := b.page(pageIdx, pageStart)
		if err != nil {
			return total, err
		}

		withinPage := int(cur - pageStart)
		n := copy(p[total:], page[withinPage:])
		if n == 0 {
			return total, errs.WrapIO("range read", fmt.Errorf("short read at offset %d", cur))
		}
		total += n
	}
	return total, nil
}

func (b *BufferedRangeReader) page(pageIdx, pageStart int64) ([]byte, error) {
	if cached, ok := b.cache.Get(pageIdx); ok {
		return cached.([]byte), nil
	}
	buf := make([]byte, PageSize)
	n, err := b.source.ReadAt(buf, pageStart)
	if n == 0 && err != nil {
		return nil, errs.WrapIO(fmt.Sprintf("fetching page at offset %d", pageStart), err)
	}
	buf = buf[:n]
	b.cache.Add(pageIdx, buf)
	return buf, nil
}
