package sync

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordReader_ReadsAllRows(t *testing.T) {
	t.Parallel()

	input := "id,name,rank\n" +
		"13,Catan,429\n" +
		"9209,Ticket to Ride,212\n" +
		"174430,Gloomhaven,3\n"

	r, err := NewRecordReader(strings.NewReader(input), newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []int64
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	if len(ids) != 3 {
		t.Fatalf("records = %d, want 3 (header excluded)", len(ids))
	}
	if ids[0] != 13 || ids[1] != 9209 || ids[2] != 174430 {
		t.Errorf("ids = %v, want [13 9209 174430]", ids)
	}
	if r.Read() != 3 || r.Skipped() != 0 {
		t.Errorf("counters = (%d, %d), want (3, 0)", r.Read(), r.Skipped())
	}
}

func TestRecordReader_FieldsKeyedByHeader(t *testing.T) {
	t.Parallel()

	input := "id,name,rank\n13,Catan,429\n"
	r, err := NewRecordReader(strings.NewReader(input), newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.Fields["name"] != "Catan" || rec.Fields["rank"] != "429" {
		t.Errorf("fields = %v", rec.Fields)
	}
}

func TestRecordReader_SkipsMalformedRows(t *testing.T) {
	t.Parallel()

	// One short row, one row with a non-numeric id; both skipped, the
	// stream keeps going.
	input := "id,name,rank\n" +
		"13,Catan,429\n" +
		"truncated row\n" +
		"notanid,Broken,1\n" +
		"9209,Ticket to Ride,212\n"

	r, err := NewRecordReader(strings.NewReader(input), newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []int64
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	if len(ids) != 2 {
		t.Fatalf("records = %d, want 2", len(ids))
	}
	if r.Skipped() != 2 {
		t.Errorf("Skipped() = %d, want 2", r.Skipped())
	}
}

// failingReader serves its prefix, then fails every subsequent Read the
// way a truncated or corrupt decompression stream does.
type failingReader struct {
	prefix io.Reader
	err    error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.prefix.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func TestRecordReader_StreamErrorIsFatal(t *testing.T) {
	t.Parallel()

	streamErr := errors.New("flate: corrupt input")
	src := &failingReader{
		prefix: strings.NewReader("id,name,rank\n13,Catan,429\n"),
		err:    streamErr,
	}

	r, err := NewRecordReader(src, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.ID != 13 {
		t.Fatalf("ID = %d, want 13", rec.ID)
	}

	// The failure repeats on every read; it must surface, not be
	// skipped over forever.
	_, err = r.Next()
	if !errors.Is(err, streamErr) {
		t.Fatalf("error = %v, want the underlying stream error", err)
	}
	if r.Skipped() != 0 {
		t.Errorf("Skipped() = %d, want 0 (stream failure is not a bad row)", r.Skipped())
	}
}

func TestRecordReader_MissingIDColumn(t *testing.T) {
	t.Parallel()

	_, err := NewRecordReader(strings.NewReader("name,rank\nCatan,429\n"), newTestLogger())
	if !errors.Is(err, domain.ErrMalformedExport) {
		t.Fatalf("error = %v, want ErrMalformedExport", err)
	}
}

func TestRecordReader_EmptyStream(t *testing.T) {
	t.Parallel()

	_, err := NewRecordReader(strings.NewReader(""), newTestLogger())
	if !errors.Is(err, domain.ErrMalformedExport) {
		t.Fatalf("error = %v, want ErrMalformedExport", err)
	}
}

func TestRecordReader_ExceedsSkippedRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		read    int
		skipped int
		max     float64
		want    bool
	}{
		{"no rows", 0, 0, 0.01, false},
		{"clean stream", 100, 0, 0.01, false},
		{"under threshold", 1000, 5, 0.01, false},
		{"at threshold", 99, 1, 0.01, false},
		{"over threshold", 50, 50, 0.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RecordReader{read: tt.read, skipped: tt.skipped}
			if got := r.ExceedsSkippedRatio(tt.max); got != tt.want {
				t.Errorf("ExceedsSkippedRatio(%v) = %v, want %v", tt.max, got, tt.want)
			}
		})
	}
}
