package sync

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// idColumn names the export column carrying the external game identifier.
const idColumn = "id"

// RecordReader turns the decompressed export stream into a lazy sequence
// of RawRecord. The first row names the columns. Rows whose shape or
// identifier cannot be read are skipped with a warning rather than
// aborting the run; the export is known to occasionally carry a handful
// of malformed trailing rows. Errors from the stream itself are fatal.
type RecordReader struct {
	csv     *csv.Reader
	header  []string
	idCol   int
	read    int
	skipped int
	log     *slog.Logger
}

// NewRecordReader reads the header row and prepares the record stream.
func NewRecordReader(r io.Reader, logger *slog.Logger) (*RecordReader, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", domain.ErrMalformedExport, err)
	}

	idCol := -1
	for i, col := range header {
		if col == idColumn {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: header has no %q column", domain.ErrMalformedExport, idColumn)
	}

	return &RecordReader{csv: cr, header: header, idCol: idCol, log: logger}, nil
}

// Next returns the next well-formed record, or io.EOF once the stream is
// exhausted. Malformed rows are skipped, counted and logged.
func (r *RecordReader) Next() (domain.RawRecord, error) {
	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			return domain.RawRecord{}, io.EOF
		}
		if err != nil {
			// Field-count mismatches and quoting errors are positional;
			// the reader resumes at the next line. Anything else is the
			// stream itself failing (truncated download, bad deflate) and
			// would repeat forever, so it aborts the read.
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return domain.RawRecord{}, fmt.Errorf("reading export stream: %w", err)
			}
			r.skipped++
			r.log.Warn("skipping malformed export row", slog.String("error", err.Error()))
			continue
		}

		id, err := strconv.ParseInt(row[r.idCol], 10, 64)
		if err != nil || id <= 0 {
			r.skipped++
			r.log.Warn("skipping export row with unusable id", slog.String("id", row[r.idCol]))
			continue
		}

		fields := make(map[string]string, len(r.header))
		for i, col := range r.header {
			fields[col] = row[i]
		}

		r.read++
		return domain.RawRecord{ID: id, Fields: fields}, nil
	}
}

// Read returns the count of records successfully produced.
func (r *RecordReader) Read() int { return r.read }

// Skipped returns the count of rows dropped as malformed.
func (r *RecordReader) Skipped() int { return r.skipped }

// ExceedsSkippedRatio reports whether skipped rows make up more than the
// given share of all rows seen. A few bad rows are normal; a large share
// means the export format changed and the run should not be trusted.
func (r *RecordReader) ExceedsSkippedRatio(max float64) bool {
	total := r.read + r.skipped
	if total == 0 {
		return false
	}
	return float64(r.skipped)/float64(total) > max
}
