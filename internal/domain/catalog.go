package domain

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord is one row decoded from the bulk export CSV, keyed by the
// header row. It carries the external game ID plus whatever optional
// columns the export happens to include; nothing here is trusted beyond
// the ID, which is what the enrichment API is addressed by.
type RawRecord struct {
	ID     int64
	Fields map[string]string
}

// CatalogItem is the normalized representation of one catalog entry,
// built from an enrichment API response.
//
// Numeric fields that are zero or absent in the source are nil, never 0:
// a zero rating and a missing rating must stay distinguishable downstream.
type CatalogItem struct {
	GameID        int64
	Name          string
	YearPublished *int
	IsExpansion   bool

	Rank         *int
	Average      *float64
	BayesAverage *float64
	Weight       *float64

	MinPlayers *int
	MaxPlayers *int

	PlayingTime *int
	MinPlaytime *int
	MaxPlaytime *int

	MinAge       *int
	SuggestedAge *float64

	// BestPlayers and RecommendedPlayers come from free-text poll
	// summaries ("Best with 4 players") reduced to digits, comma, plus
	// and hyphen. Best-effort, not authoritative.
	BestPlayers        *string
	RecommendedPlayers *string

	IsCooperative bool
	IsTeamBased   bool

	// Taxonomy tags in source order. Stored as text[] so no join
	// delimiter ever has to round-trip.
	Categories []string
	Mechanics  []string
	Families   []string
}

// ExpansionLink records that ExpansionID expands BaseID. Links are
// derived only for base games, so expansion-of-expansion chains are
// never produced.
type ExpansionLink struct {
	BaseID      int64
	ExpansionID int64
}

// RunStatus is the terminal state of a sync run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// SyncReport summarizes one pipeline run for the sync_runs audit table
// and the final log line.
type SyncReport struct {
	RunID           uuid.UUID
	ExportFile      string
	RowsRead        int
	RowsSkipped     int
	EnrichmentCalls int
	ItemsStaged     int
	LinksStaged     int
	ItemsPromoted   int
	LinksPromoted   int
	StartedAt       time.Time
	Duration        time.Duration
}
