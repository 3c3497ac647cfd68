package sync

import (
	"io"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// recordSource is the pull side of the parsing stage.
type recordSource interface {
	Next() (domain.RawRecord, error)
}

// Batcher groups record identifiers into batches of at most size,
// preserving input order. The batch size is dictated by the detail API's
// items-per-call maximum, not by anything in the export format, which is
// why grouping lives apart from parsing.
type Batcher struct {
	src  recordSource
	size int
}

// NewBatcher creates a Batcher over src.
func NewBatcher(src recordSource, size int) *Batcher {
	if size <= 0 {
		size = 20
	}
	return &Batcher{src: src, size: size}
}

// Next returns the next batch of identifiers, or io.EOF once the source
// is drained. The final batch may be short; an empty batch is never
// returned.
func (b *Batcher) Next() ([]int64, error) {
	batch := make([]int64, 0, b.size)
	for len(batch) < b.size {
		rec, err := b.src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, rec.ID)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}
