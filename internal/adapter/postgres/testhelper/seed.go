package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meeplelog/catalog-sync/internal/domain"
)

// SeedGame inserts a row directly into the live games table, bypassing
// staging and promotion. Returns the inserted domain.CatalogItem.
func SeedGame(t *testing.T, pool *pgxpool.Pool, id int64, name string, rank *int) domain.CatalogItem {
	t.Helper()
	ctx := context.Background()

	year := 2000
	item := domain.CatalogItem{
		GameID:        id,
		Name:          name,
		YearPublished: &year,
		Rank:          rank,
		Categories:    []string{"Strategy"},
		Mechanics:     []string{"Hand Management"},
		Families:      []string{},
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO games (game_id, name, year_published, is_expansion, rank, categories, mechanics, families, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (game_id) DO NOTHING`,
		item.GameID, item.Name, item.YearPublished, item.IsExpansion, item.Rank,
		item.Categories, item.Mechanics, item.Families, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("testhelper: SeedGame insert game: %v", err)
	}

	return item
}

// SeedExpansion inserts an expansion game plus its link to a base game.
func SeedExpansion(t *testing.T, pool *pgxpool.Pool, baseID, expansionID int64, name string) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`INSERT INTO games (game_id, name, is_expansion, updated_at)
		 VALUES ($1, $2, TRUE, $3)
		 ON CONFLICT (game_id) DO NOTHING`,
		expansionID, name, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("testhelper: SeedExpansion insert game: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO game_expansions (base_id, expansion_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		baseID, expansionID,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedExpansion insert link: %v", err)
	}
}
