package catalog

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/meeplelog/catalog-sync/internal/adapter/postgres"
	"github.com/meeplelog/catalog-sync/internal/domain"
)

// psql builds queries with Postgres $N placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var gameColumns = []string{
	"game_id", "name", "year_published", "is_expansion",
	"rank", "average", "bayes_average", "weight",
	"min_players", "max_players", "playing_time", "min_playtime", "max_playtime",
	"min_age", "suggested_age", "best_players", "recommended_players",
	"is_cooperative", "is_team_based", "categories", "mechanics", "families",
}

// gameRow mirrors the games table for scany.
type gameRow struct {
	GameID             int64    `db:"game_id"`
	Name               string   `db:"name"`
	YearPublished      *int     `db:"year_published"`
	IsExpansion        bool     `db:"is_expansion"`
	Rank               *int     `db:"rank"`
	Average            *float64 `db:"average"`
	BayesAverage       *float64 `db:"bayes_average"`
	Weight             *float64 `db:"weight"`
	MinPlayers         *int     `db:"min_players"`
	MaxPlayers         *int     `db:"max_players"`
	PlayingTime        *int     `db:"playing_time"`
	MinPlaytime        *int     `db:"min_playtime"`
	MaxPlaytime        *int     `db:"max_playtime"`
	MinAge             *int     `db:"min_age"`
	SuggestedAge       *float64 `db:"suggested_age"`
	BestPlayers        *string  `db:"best_players"`
	RecommendedPlayers *string  `db:"recommended_players"`
	IsCooperative      bool     `db:"is_cooperative"`
	IsTeamBased        bool     `db:"is_team_based"`
	Categories         []string `db:"categories"`
	Mechanics          []string `db:"mechanics"`
	Families           []string `db:"families"`
}

func (g gameRow) toDomain() domain.CatalogItem {
	return domain.CatalogItem{
		GameID:             g.GameID,
		Name:               g.Name,
		YearPublished:      g.YearPublished,
		IsExpansion:        g.IsExpansion,
		Rank:               g.Rank,
		Average:            g.Average,
		BayesAverage:       g.BayesAverage,
		Weight:             g.Weight,
		MinPlayers:         g.MinPlayers,
		MaxPlayers:         g.MaxPlayers,
		PlayingTime:        g.PlayingTime,
		MinPlaytime:        g.MinPlaytime,
		MaxPlaytime:        g.MaxPlaytime,
		MinAge:             g.MinAge,
		SuggestedAge:       g.SuggestedAge,
		BestPlayers:        g.BestPlayers,
		RecommendedPlayers: g.RecommendedPlayers,
		IsCooperative:      g.IsCooperative,
		IsTeamBased:        g.IsTeamBased,
		Categories:         g.Categories,
		Mechanics:          g.Mechanics,
		Families:           g.Families,
	}
}

// GetGame returns one live catalog item by its external identifier.
func (r *Repo) GetGame(ctx context.Context, gameID int64) (*domain.CatalogItem, error) {
	sql, args, err := psql.Select(gameColumns...).
		From("games").
		Where(squirrel.Eq{"game_id": gameID}).
		ToSql()
	if err != nil {
		return nil, mapError(err, "build get game")
	}

	var row gameRow
	q := postgres.QuerierFromCtx(ctx, r.db)
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		return nil, mapError(err, "get game")
	}
	item := row.toDomain()
	return &item, nil
}

// ListTopRanked returns live items ordered by rank, unranked excluded.
func (r *Repo) ListTopRanked(ctx context.Context, limit uint64) ([]domain.CatalogItem, error) {
	sql, args, err := psql.Select(gameColumns...).
		From("games").
		Where("rank IS NOT NULL").
		OrderBy("rank ASC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, mapError(err, "build list top ranked")
	}

	var rows []gameRow
	q := postgres.QuerierFromCtx(ctx, r.db)
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, mapError(err, "list top ranked")
	}

	items := make([]domain.CatalogItem, len(rows))
	for i, row := range rows {
		items[i] = row.toDomain()
	}
	return items, nil
}

// ListExpansions returns the expansion identifiers linked to a base game.
func (r *Repo) ListExpansions(ctx context.Context, baseID int64) ([]int64, error) {
	sql, args, err := psql.Select("expansion_id").
		From("game_expansions").
		Where(squirrel.Eq{"base_id": baseID}).
		OrderBy("expansion_id ASC").
		ToSql()
	if err != nil {
		return nil, mapError(err, "build list expansions")
	}

	var ids []int64
	q := postgres.QuerierFromCtx(ctx, r.db)
	if err := pgxscan.Select(ctx, q, &ids, sql, args...); err != nil {
		return nil, mapError(err, "list expansions")
	}
	return ids, nil
}

// CountLive returns the number of rows in the live games table.
func (r *Repo) CountLive(ctx context.Context) (int, error) {
	return r.countTable(ctx, "games")
}

// CountStaged returns the number of rows in the staging games table.
func (r *Repo) CountStaged(ctx context.Context) (int, error) {
	return r.countTable(ctx, "staging_games")
}

func (r *Repo) countTable(ctx context.Context, table string) (int, error) {
	sql, args, err := psql.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, mapError(err, "build count "+table)
	}

	var count int
	q := postgres.QuerierFromCtx(ctx, r.db)
	if err := q.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, mapError(err, "count "+table)
	}
	return count, nil
}

// runRow mirrors the sync_runs table for scany.
type runRow struct {
	ID              uuid.UUID  `db:"id"`
	Status          string     `db:"status"`
	ExportFile      string     `db:"export_file"`
	RowsRead        int        `db:"rows_read"`
	RowsSkipped     int        `db:"rows_skipped"`
	EnrichmentCalls int        `db:"enrichment_calls"`
	ItemsStaged     int        `db:"items_staged"`
	LinksStaged     int        `db:"links_staged"`
	ItemsPromoted   int        `db:"items_promoted"`
	LinksPromoted   int        `db:"links_promoted"`
	StartedAt       time.Time  `db:"started_at"`
	FinishedAt      *time.Time `db:"finished_at"`
}

// GetRun returns the audit record of one sync run.
func (r *Repo) GetRun(ctx context.Context, id uuid.UUID) (domain.SyncReport, domain.RunStatus, error) {
	sql, args, err := psql.Select(
		"id", "status", "export_file",
		"rows_read", "rows_skipped", "enrichment_calls",
		"items_staged", "links_staged", "items_promoted", "links_promoted",
		"started_at", "finished_at").
		From("sync_runs").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.SyncReport{}, "", mapError(err, "build get run")
	}

	var row runRow
	q := postgres.QuerierFromCtx(ctx, r.db)
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		return domain.SyncReport{}, "", mapError(err, "get run")
	}

	report := domain.SyncReport{
		RunID:           row.ID,
		ExportFile:      row.ExportFile,
		RowsRead:        row.RowsRead,
		RowsSkipped:     row.RowsSkipped,
		EnrichmentCalls: row.EnrichmentCalls,
		ItemsStaged:     row.ItemsStaged,
		LinksStaged:     row.LinksStaged,
		ItemsPromoted:   row.ItemsPromoted,
		LinksPromoted:   row.LinksPromoted,
		StartedAt:       row.StartedAt,
	}
	if row.FinishedAt != nil {
		report.Duration = row.FinishedAt.Sub(row.StartedAt)
	}
	return report, domain.RunStatus(row.Status), nil
}
