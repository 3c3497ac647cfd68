// Command promote merges whatever is currently staged into the live
// catalog tables without running a full sync. It exists for recovery:
// when a run staged everything but failed before (or during) promotion,
// this replays the promotion step against the surviving staging rows.
//
// Requires DATABASE_DSN environment variable to be set.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meeplelog/catalog-sync/internal/adapter/postgres"
	"github.com/meeplelog/catalog-sync/internal/adapter/postgres/catalog"
)

func main() {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	repo := catalog.New(pool, postgres.NewTxManager(pool))

	staged, err := repo.CountStaged(ctx)
	if err != nil {
		log.Fatalf("count staged rows: %v", err)
	}
	if staged == 0 {
		fmt.Println("Staging is empty, nothing to promote.")
		os.Exit(1)
	}

	items, links, err := repo.Promote(ctx)
	if err != nil {
		log.Fatalf("promote: %v", err)
	}

	fmt.Printf("Promoted %d items and %d expansion links.\n", items, links)
}
