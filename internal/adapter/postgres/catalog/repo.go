// Package catalog implements the game catalog store backed by
// PostgreSQL: staging bulk writes, the staging-to-live promotion
// procedures and the sync run audit log. The live tables are only ever
// written by the promotion statements.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meeplelog/catalog-sync/internal/adapter/postgres"
	"github.com/meeplelog/catalog-sync/internal/domain"
)

// Repo provides catalog persistence backed by PostgreSQL.
type Repo struct {
	db   postgres.Querier // the pool outside a transaction
	pool *pgxpool.Pool    // pinned connections for the run lock
	txm  *postgres.TxManager
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool, txm *postgres.TxManager) *Repo {
	return &Repo{db: pool, pool: pool, txm: txm}
}

// ResetStaging truncates the staging tables. Called at run start;
// promotion merges rather than moves, so leftovers from the previous
// run are expected here.
func (r *Repo) ResetStaging(ctx context.Context) error {
	q := postgres.QuerierFromCtx(ctx, r.db)
	_, err := q.Exec(ctx, `TRUNCATE staging_games, staging_game_expansions`)
	return mapError(err, "reset staging")
}

// BulkInsertItems inserts catalog items into staging using pgx.Batch.
// The export occasionally repeats an identifier; duplicates are skipped
// via ON CONFLICT DO NOTHING. Returns the number of inserted rows.
func (r *Repo) BulkInsertItems(ctx context.Context, items []domain.CatalogItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO staging_games (
				game_id, name, year_published, is_expansion,
				rank, average, bayes_average, weight,
				min_players, max_players, playing_time, min_playtime, max_playtime,
				min_age, suggested_age, best_players, recommended_players,
				is_cooperative, is_team_based, categories, mechanics, families)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			         $14, $15, $16, $17, $18, $19, $20, $21, $22)
			 ON CONFLICT (game_id) DO NOTHING`,
			it.GameID, it.Name, it.YearPublished, it.IsExpansion,
			it.Rank, it.Average, it.BayesAverage, it.Weight,
			it.MinPlayers, it.MaxPlayers, it.PlayingTime, it.MinPlaytime, it.MaxPlaytime,
			it.MinAge, it.SuggestedAge, it.BestPlayers, it.RecommendedPlayers,
			it.IsCooperative, it.IsTeamBased, it.Categories, it.Mechanics, it.Families,
		)
	}

	n, err := r.sendBatchExec(ctx, batch)
	if err != nil {
		return n, mapError(err, "stage items")
	}
	return n, nil
}

// BulkInsertExpansionLinks inserts expansion links into staging using
// pgx.Batch. Duplicate edges are skipped via ON CONFLICT DO NOTHING.
func (r *Repo) BulkInsertExpansionLinks(ctx context.Context, links []domain.ExpansionLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(
			`INSERT INTO staging_game_expansions (base_id, expansion_id)
			 VALUES ($1, $2)
			 ON CONFLICT (base_id, expansion_id) DO NOTHING`,
			l.BaseID, l.ExpansionID,
		)
	}

	n, err := r.sendBatchExec(ctx, batch)
	if err != nil {
		return n, mapError(err, "stage expansion links")
	}
	return n, nil
}

// promoteItemsSQL merges staged items into the live games table. An
// upsert keyed on game_id makes re-running after a crash converge on
// the same end state.
const promoteItemsSQL = `
	INSERT INTO games (
		game_id, name, year_published, is_expansion,
		rank, average, bayes_average, weight,
		min_players, max_players, playing_time, min_playtime, max_playtime,
		min_age, suggested_age, best_players, recommended_players,
		is_cooperative, is_team_based, categories, mechanics, families, updated_at)
	SELECT
		game_id, name, year_published, is_expansion,
		rank, average, bayes_average, weight,
		min_players, max_players, playing_time, min_playtime, max_playtime,
		min_age, suggested_age, best_players, recommended_players,
		is_cooperative, is_team_based, categories, mechanics, families, now()
	FROM staging_games
	ON CONFLICT (game_id) DO UPDATE SET
		name = EXCLUDED.name,
		year_published = EXCLUDED.year_published,
		is_expansion = EXCLUDED.is_expansion,
		rank = EXCLUDED.rank,
		average = EXCLUDED.average,
		bayes_average = EXCLUDED.bayes_average,
		weight = EXCLUDED.weight,
		min_players = EXCLUDED.min_players,
		max_players = EXCLUDED.max_players,
		playing_time = EXCLUDED.playing_time,
		min_playtime = EXCLUDED.min_playtime,
		max_playtime = EXCLUDED.max_playtime,
		min_age = EXCLUDED.min_age,
		suggested_age = EXCLUDED.suggested_age,
		best_players = EXCLUDED.best_players,
		recommended_players = EXCLUDED.recommended_players,
		is_cooperative = EXCLUDED.is_cooperative,
		is_team_based = EXCLUDED.is_team_based,
		categories = EXCLUDED.categories,
		mechanics = EXCLUDED.mechanics,
		families = EXCLUDED.families,
		updated_at = now()`

const promoteLinksSQL = `
	INSERT INTO game_expansions (base_id, expansion_id)
	SELECT base_id, expansion_id FROM staging_game_expansions
	ON CONFLICT (base_id, expansion_id) DO NOTHING`

// PromoteItems merges staged items into the live games table. Safe to
// re-invoke with unchanged staging data.
func (r *Repo) PromoteItems(ctx context.Context) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := q.Exec(ctx, promoteItemsSQL)
	if err != nil {
		return 0, mapError(err, "promote items")
	}
	return int(tag.RowsAffected()), nil
}

// PromoteExpansionLinks merges staged expansion links into the live
// table. Safe to re-invoke with unchanged staging data.
func (r *Repo) PromoteExpansionLinks(ctx context.Context) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := q.Exec(ctx, promoteLinksSQL)
	if err != nil {
		return 0, mapError(err, "promote expansion links")
	}
	return int(tag.RowsAffected()), nil
}

// Promote runs both promotion procedures, items first, inside one
// transaction: readers of the live tables never observe a state with
// new links but old items.
func (r *Repo) Promote(ctx context.Context) (items, links int, err error) {
	err = r.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		if items, txErr = r.PromoteItems(txCtx); txErr != nil {
			return txErr
		}
		links, txErr = r.PromoteExpansionLinks(txCtx)
		return txErr
	})
	if err != nil {
		return 0, 0, err
	}
	return items, links, nil
}

// StartRun records a new sync run in the running state.
func (r *Repo) StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.db)
	_, err := q.Exec(ctx,
		`INSERT INTO sync_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, domain.RunStatusRunning, startedAt,
	)
	return mapError(err, "record run start")
}

// FinishRun records a run's terminal status and counters.
func (r *Repo) FinishRun(ctx context.Context, id uuid.UUID, status domain.RunStatus, report domain.SyncReport) error {
	q := postgres.QuerierFromCtx(ctx, r.db)
	_, err := q.Exec(ctx,
		`UPDATE sync_runs SET
			status = $2, export_file = $3,
			rows_read = $4, rows_skipped = $5, enrichment_calls = $6,
			items_staged = $7, links_staged = $8,
			items_promoted = $9, links_promoted = $10,
			finished_at = now()
		 WHERE id = $1`,
		id, status, report.ExportFile,
		report.RowsRead, report.RowsSkipped, report.EnrichmentCalls,
		report.ItemsStaged, report.LinksStaged,
		report.ItemsPromoted, report.LinksPromoted,
	)
	return mapError(err, "record run outcome")
}

// sendBatchExec sends a pgx.Batch and counts affected rows from Exec results.
func (r *Repo) sendBatchExec(ctx context.Context, batch *pgx.Batch) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)
	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("batch exec: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}
