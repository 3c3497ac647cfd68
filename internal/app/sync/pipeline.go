package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meeplelog/catalog-sync/internal/adapter/geeksite"
	"github.com/meeplelog/catalog-sync/internal/domain"
)

// SessionSource obtains an authenticated site session.
type SessionSource interface {
	Login(ctx context.Context, username, password string) (*geeksite.Session, error)
}

// ExportSource discovers the current bulk export.
type ExportSource interface {
	Locate(ctx context.Context, sess *geeksite.Session) (geeksite.Export, error)
}

// ArchiveSource downloads the export archive and opens its CSV.
type ArchiveSource interface {
	OpenCSV(ctx context.Context, sess *geeksite.Session, exportURL string) (io.ReadCloser, error)
}

// DetailFetcher resolves a batch of identifiers against the detail API.
type DetailFetcher interface {
	FetchItems(ctx context.Context, ids []int64) ([]geeksite.Item, error)
}

// CatalogStore is the persistence surface the pipeline drives.
type CatalogStore interface {
	StagingWriter

	// AcquireRunLock guards the staging area against a concurrent run.
	// It fails fast with domain.ErrRunInProgress when another run holds
	// the lock.
	AcquireRunLock(ctx context.Context) (release func(), err error)

	ResetStaging(ctx context.Context) error

	// Promote merges staged items then staged expansion links into the
	// live tables inside one transaction and returns the merged counts.
	Promote(ctx context.Context) (items, links int, err error)

	StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	FinishRun(ctx context.Context, id uuid.UUID, status domain.RunStatus, report domain.SyncReport) error
}

// Config carries the tunables of one pipeline run.
type Config struct {
	Username string
	Password string

	// EnrichBatchSize is the detail API's items-per-call maximum.
	EnrichBatchSize int
	// InsertBatchSize bounds one staging bulk insert.
	InsertBatchSize int
	// MaxSkippedRowRatio is the share of malformed export rows above
	// which the run aborts instead of trusting the remainder.
	MaxSkippedRowRatio float64
}

// ratioCheckFloor is the row count below which the mid-run skipped-ratio
// guard stays quiet: a handful of rows cannot yield a meaningful ratio.
// The end-of-stream check applies regardless of total.
const ratioCheckFloor = 100

// Pipeline runs one full synchronization: authenticate, locate and
// download the export, then parse, enrich and stage record batches, and
// finally promote staging into the live tables. The live tables are
// only ever touched by the promotion step.
type Pipeline struct {
	log     *slog.Logger
	auth    SessionSource
	locator ExportSource
	archive ArchiveSource
	detail  DetailFetcher
	store   CatalogStore
	cfg     Config
}

// NewPipeline creates a Pipeline.
func NewPipeline(log *slog.Logger, auth SessionSource, locator ExportSource, archive ArchiveSource, detail DetailFetcher, store CatalogStore, cfg Config) *Pipeline {
	return &Pipeline{
		log:     log,
		auth:    auth,
		locator: locator,
		archive: archive,
		detail:  detail,
		store:   store,
		cfg:     cfg,
	}
}

// Run executes the pipeline once. The returned report is populated with
// whatever progress was made even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (domain.SyncReport, error) {
	report := domain.SyncReport{RunID: uuid.New(), StartedAt: time.Now()}
	log := p.log.With(slog.String("run_id", report.RunID.String()))

	release, err := p.store.AcquireRunLock(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	if err := p.store.StartRun(ctx, report.RunID, report.StartedAt); err != nil {
		return report, fmt.Errorf("record run start: %w", err)
	}

	runErr := p.run(ctx, log, &report)
	report.Duration = time.Since(report.StartedAt)

	status := domain.RunStatusSucceeded
	if runErr != nil {
		status = domain.RunStatusFailed
		log.Error("sync run failed",
			slog.String("error", runErr.Error()),
			slog.Duration("duration", report.Duration),
		)
	} else {
		log.Info("sync run completed",
			slog.Int("rows_read", report.RowsRead),
			slog.Int("rows_skipped", report.RowsSkipped),
			slog.Int("items_promoted", report.ItemsPromoted),
			slog.Int("links_promoted", report.LinksPromoted),
			slog.Duration("duration", report.Duration),
		)
	}

	if err := p.store.FinishRun(ctx, report.RunID, status, report); err != nil {
		log.Warn("could not record run outcome", slog.String("error", err.Error()))
	}

	return report, runErr
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, report *domain.SyncReport) error {
	// Staging may hold the previous run's rows; promotion merges rather
	// than moves, so cleanup happens here at the start of the next run.
	if err := p.store.ResetStaging(ctx); err != nil {
		return fmt.Errorf("reset staging: %w", err)
	}

	sess, err := p.auth.Login(ctx, p.cfg.Username, p.cfg.Password)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	export, err := p.locator.Locate(ctx, sess)
	if err != nil {
		return fmt.Errorf("locate export: %w", err)
	}
	report.ExportFile = export.Filename
	log.Info("export located", slog.String("file", export.Filename))

	stream, err := p.archive.OpenCSV(ctx, sess, export.URL)
	if err != nil {
		return fmt.Errorf("download export: %w", err)
	}
	defer stream.Close()

	reader, err := NewRecordReader(stream, log)
	if err != nil {
		return fmt.Errorf("parse export: %w", err)
	}

	loader := NewLoader(p.store, p.cfg.InsertBatchSize)
	batches := NewBatcher(reader, p.cfg.EnrichBatchSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := batches.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse export: %w", err)
		}

		// A badly corrupted export should not pay for every enrichment
		// call before failing.
		if reader.Read()+reader.Skipped() >= ratioCheckFloor &&
			reader.ExceedsSkippedRatio(p.cfg.MaxSkippedRowRatio) {
			report.RowsRead = reader.Read()
			report.RowsSkipped = reader.Skipped()
			return fmt.Errorf("parse export: %w", skippedRatioError(reader))
		}

		items, err := p.detail.FetchItems(ctx, ids)
		if err != nil {
			return fmt.Errorf("enrich batch: %w", err)
		}
		report.EnrichmentCalls++

		for _, it := range items {
			item, links := Transform(it)
			if err := loader.Add(ctx, item, links); err != nil {
				return fmt.Errorf("stage batch: %w", err)
			}
		}

		log.Debug("batch staged",
			slog.Int("batch_size", len(ids)),
			slog.Int("calls", report.EnrichmentCalls),
		)
	}

	if err := loader.Flush(ctx); err != nil {
		return fmt.Errorf("stage batch: %w", err)
	}

	report.RowsRead = reader.Read()
	report.RowsSkipped = reader.Skipped()
	report.ItemsStaged = loader.ItemsStaged()
	report.LinksStaged = loader.LinksStaged()

	if reader.ExceedsSkippedRatio(p.cfg.MaxSkippedRowRatio) {
		return fmt.Errorf("parse export: %w", skippedRatioError(reader))
	}

	items, links, err := p.store.Promote(ctx)
	if err != nil {
		return fmt.Errorf("promote: %w", err)
	}
	report.ItemsPromoted = items
	report.LinksPromoted = links

	return nil
}

func skippedRatioError(reader *RecordReader) error {
	return fmt.Errorf("skipped %d of %d rows: %w",
		reader.Skipped(), reader.Read()+reader.Skipped(), domain.ErrMalformedExport)
}
