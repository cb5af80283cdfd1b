package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

// Journal persists each completed part record as soon as it is produced,
// keyed by source_id, so a crash mid-batch loses no finished work and a
// restarted batch can skip documents it already analyzed.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS part_records (
	source_id  TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// OpenJournal opens (or creates) the journal database at path.
// Use ":memory:" for an in-memory journal in tests.
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One connection: writes serialize, and an in-memory journal stays a
	// single database instead of one per pooled connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(journalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db, logger: logger}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Upsert writes one record, replacing any previous entry for its source.
func (j *Journal) Upsert(ctx context.Context, rec entity.PartRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO part_records (source_id, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at`,
		rec.SourceID, string(b), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("journal upsert: %w", err)
	}
	j.logger.Debug("journal.upsert.ok", "source_id", rec.SourceID)
	return nil
}

// Has reports whether a record for sourceID is already journaled.
func (j *Journal) Has(ctx context.Context, sourceID string) (bool, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM part_records WHERE source_id = ?`, sourceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("journal lookup: %w", err)
	}
	return n > 0, nil
}

// List returns every journaled record ordered by source_id.
func (j *Journal) List(ctx context.Context) ([]entity.PartRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT record FROM part_records ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []entity.PartRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		var rec entity.PartRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode journaled record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
