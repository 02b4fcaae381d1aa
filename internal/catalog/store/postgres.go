package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/postgres"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresLoader reads the catalog from a media table.
//
// It expects a table shaped like:
//
//	CREATE TABLE media (
//	    id          TEXT PRIMARY KEY,
//	    title       TEXT,
//	    description TEXT,
//	    tags        TEXT[],
//	    gallery     TEXT NOT NULL DEFAULT '',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
// Records are returned newest first; that order is the tie-break order of
// equally scored search results.
type PostgresLoader struct {
	db     *postgres.Client
	query  string
	logger *slog.Logger
}

func NewPostgresLoader(db *postgres.Client, table string) (*PostgresLoader, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid catalog table name %q", table)
	}
	return &PostgresLoader{
		db:     db,
		query:  buildSelect(table),
		logger: slog.Default().With("component", "catalog-store"),
	}, nil
}

func buildSelect(table string) string {
	return fmt.Sprintf(
		`SELECT id, COALESCE(title, ''), COALESCE(description, ''), COALESCE(tags, '{}'), COALESCE(gallery, ''), created_at
		FROM %s ORDER BY created_at DESC, id`,
		pq.QuoteIdentifier(table),
	)
}

// Load reads every record inside one read-only repeatable-read transaction so
// the catalog is a consistent snapshot.
func (l *PostgresLoader) Load(ctx context.Context) ([]catalog.Record, error) {
	start := time.Now()
	records := make([]catalog.Record, 0)
	err := l.db.InTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, l.query)
		if err != nil {
			return fmt.Errorf("querying catalog: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var rec catalog.Record
			var tags pq.StringArray
			if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &tags, &rec.Gallery, &rec.CreatedAt); err != nil {
				return fmt.Errorf("scanning catalog row: %w", err)
			}
			rec.Tags = []string(tags)
			records = append(records, rec)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating catalog rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("catalog loaded from postgres",
		"records", len(records),
		"duration", time.Since(start),
	)
	return records, nil
}
