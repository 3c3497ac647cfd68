package geeksite

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// Extractor downloads the bulk-export zip and streams the inner CSV out.
//
// The archive's central directory sits at the end of the file, so the
// download is spooled to an unnamed temp file first; memory use stays
// bounded no matter how large the catalog grows, and the inner file is
// streamed to the caller rather than ever being held whole.
type Extractor struct {
	httpClient *http.Client
	retry      RetryPolicy
	log        *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(httpClient *http.Client, retry RetryPolicy, logger *slog.Logger) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		retry:      retry,
		log:        logger.With("adapter", "geeksite"),
	}
}

// OpenCSV downloads the archive at exportURL and returns a reader over
// the decompressed contents of the contained CSV file. The caller must
// Close the reader; closing releases the spool file.
func (e *Extractor) OpenCSV(ctx context.Context, sess *Session, exportURL string) (io.ReadCloser, error) {
	spool, err := e.download(ctx, sess, exportURL)
	if err != nil {
		return nil, err
	}

	info, err := spool.Stat()
	if err != nil {
		spool.Close()
		return nil, fmt.Errorf("geeksite: stat spool: %w", err)
	}

	zr, err := zip.NewReader(spool, info.Size())
	if err != nil {
		spool.Close()
		return nil, fmt.Errorf("geeksite: open archive: %w", domain.ErrArchiveFormat)
	}
	if len(zr.File) == 0 {
		spool.Close()
		return nil, fmt.Errorf("geeksite: archive is empty: %w", domain.ErrArchiveFormat)
	}

	inner := pickCSV(zr.File)
	rc, err := inner.Open()
	if err != nil {
		spool.Close()
		return nil, fmt.Errorf("geeksite: open %s in archive: %w", inner.Name, domain.ErrArchiveFormat)
	}

	e.log.InfoContext(ctx, "archive opened",
		slog.String("inner_file", inner.Name),
		slog.Int64("archive_bytes", info.Size()),
		slog.Uint64("inner_bytes", inner.UncompressedSize64),
	)

	return &spooledReader{ReadCloser: rc, spool: spool}, nil
}

// download streams the archive body into an unlinked temp file and
// returns it positioned for random access.
func (e *Extractor) download(ctx context.Context, sess *Session, exportURL string) (*os.File, error) {
	var lastErr error
	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCooldown(ctx, e.retry.Cooldown); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
		if err != nil {
			return nil, fmt.Errorf("geeksite: create download request: %w", err)
		}
		sess.apply(req)

		resp, err := e.httpClient.Do(req)
		if err != nil {
			lastErr = err
			e.log.WarnContext(ctx, "download transient failure",
				slog.Int("attempt", attempt), slog.String("reason", "network error"))
			continue
		}

		if transientStatus(resp.StatusCode) {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			drainClose(resp)
			e.log.WarnContext(ctx, "download transient failure",
				slog.Int("attempt", attempt), slog.Int("status", resp.StatusCode))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			drainClose(resp)
			return nil, fmt.Errorf("geeksite: download status %d: %w", resp.StatusCode, domain.ErrDownload)
		}

		spool, err := os.CreateTemp("", "catalog-export-*.zip")
		if err != nil {
			drainClose(resp)
			return nil, fmt.Errorf("geeksite: create spool: %w", err)
		}
		// Unlink immediately; the fd keeps the file alive until Close.
		os.Remove(spool.Name())

		_, err = io.Copy(spool, resp.Body)
		resp.Body.Close()
		if err != nil {
			spool.Close()
			lastErr = err
			e.log.WarnContext(ctx, "download transient failure",
				slog.Int("attempt", attempt), slog.String("reason", "interrupted body"))
			continue
		}

		return spool, nil
	}

	return nil, fmt.Errorf("geeksite: download failed after %d attempts (%v): %w",
		e.retry.MaxAttempts, lastErr, domain.ErrDownload)
}

// pickCSV prefers an entry with a .csv suffix, falling back to the
// first entry for single-file archives with surprising names.
func pickCSV(files []*zip.File) *zip.File {
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			return f
		}
	}
	return files[0]
}

type spooledReader struct {
	io.ReadCloser
	spool *os.File
}

func (r *spooledReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.spool.Close(); err == nil {
		err = cerr
	}
	return err
}
