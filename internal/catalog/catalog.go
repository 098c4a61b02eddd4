package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// Stages recorded in the catalog.
const (
	StageOriginal  = "original"
	StageProcessed = "processed"
)

// DefaultLimit is the number of rows Recent returns for a non-positive limit.
const DefaultLimit = 50

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// SQLite allows a single writer at a time.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			entry_id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL,
			seq_index         INTEGER NOT NULL,
			source_id         TEXT,
			name              TEXT NOT NULL,
			ext               TEXT NOT NULL,
			path              TEXT NOT NULL,
			origin            TEXT,
			kind              TEXT NOT NULL,
			stage             TEXT NOT NULL,
			tags              TEXT,
			created_unix_nano BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_images_run ON images (run_id, seq_index);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	return &DB{db}, nil
}

// Entry is one persisted file.
type Entry struct {
	RunID     string
	Index     int
	SourceID  string
	Name      string
	Ext       string
	Path      string
	Origin    string
	Kind      string
	Stage     string
	Tags      []imaging.Tag
	CreatedAt time.Time
}

func (e *Entry) String() string {
	return fmt.Sprintf("Run: %s, Index: %d, Stage: %s, Name: %s%s, Path: %s",
		e.RunID, e.Index, e.Stage, e.Name, e.Ext, e.Path)
}

// Record inserts an entry. A zero CreatedAt is set to the current time.
func (db *DB) Record(ctx context.Context, e Entry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO images (
			run_id, seq_index, source_id, name, ext, path, origin, kind, stage, tags, created_unix_nano
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Index, e.SourceID, e.Name, e.Ext, e.Path, e.Origin, e.Kind, e.Stage, string(tags),
		e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.Path, err)
	}
	return nil
}

const selectEntries = `SELECT run_id, seq_index, source_id, name, ext, path, origin, kind, stage, tags, created_unix_nano
	FROM images`

// Recent returns the newest entries first, at most limit of them.
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := db.QueryContext(ctx, selectEntries+` ORDER BY created_unix_nano DESC, entry_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByRun returns the entries of one run ordered by sequence index, with
// originals before processed images of the same index.
func (db *DB) ByRun(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, selectEntries+` WHERE run_id = ? ORDER BY seq_index, stage`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			sourceID sql.NullString
			origin   sql.NullString
			tags     sql.NullString
			created  int64
		)
		if err := rows.Scan(
			&e.RunID,
			&e.Index,
			&sourceID,
			&e.Name,
			&e.Ext,
			&e.Path,
			&origin,
			&e.Kind,
			&e.Stage,
			&tags,
			&created,
		); err != nil {
			return nil, err
		}
		e.SourceID = sourceID.String
		e.Origin = origin.String
		e.CreatedAt = time.Unix(0, created)
		if tags.Valid && tags.String != "" && tags.String != "null" {
			if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
