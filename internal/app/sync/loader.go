package sync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// StagingWriter is the staging-side persistence the loader needs.
type StagingWriter interface {
	BulkInsertItems(ctx context.Context, items []domain.CatalogItem) (int, error)
	BulkInsertExpansionLinks(ctx context.Context, links []domain.ExpansionLink) (int, error)
}

// Loader accumulates transformed records and writes them to staging in
// bounded bulk-insert batches. Items and links go to independent tables,
// so a flush inserts both concurrently. An insert failure aborts the
// whole run; nothing here retries or drops rows.
type Loader struct {
	repo      StagingWriter
	batchSize int

	items []domain.CatalogItem
	links []domain.ExpansionLink

	itemsStaged int
	linksStaged int
}

// NewLoader creates a Loader flushing at batchSize rows.
func NewLoader(repo StagingWriter, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Loader{repo: repo, batchSize: batchSize}
}

// Add buffers one item and its links, flushing when either buffer
// reaches the batch size.
func (l *Loader) Add(ctx context.Context, item domain.CatalogItem, links []domain.ExpansionLink) error {
	l.items = append(l.items, item)
	l.links = append(l.links, links...)
	if len(l.items) >= l.batchSize || len(l.links) >= l.batchSize {
		return l.Flush(ctx)
	}
	return nil
}

// Flush writes any buffered rows. The stream's final partial batch goes
// through here too; it is never dropped.
func (l *Loader) Flush(ctx context.Context) error {
	items, links := l.items, l.links
	l.items, l.links = nil, nil

	g, ctx := errgroup.WithContext(ctx)
	if len(items) > 0 {
		g.Go(func() error {
			n, err := l.repo.BulkInsertItems(ctx, items)
			if err != nil {
				return fmt.Errorf("insert items: %w", err)
			}
			l.itemsStaged += n
			return nil
		})
	}
	if len(links) > 0 {
		g.Go(func() error {
			n, err := l.repo.BulkInsertExpansionLinks(ctx, links)
			if err != nil {
				return fmt.Errorf("insert expansion links: %w", err)
			}
			l.linksStaged += n
			return nil
		})
	}
	return g.Wait()
}

// ItemsStaged returns the total items written so far.
func (l *Loader) ItemsStaged() int { return l.itemsStaged }

// LinksStaged returns the total expansion links written so far.
func (l *Loader) LinksStaged() int { return l.linksStaged }
