package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/speech-align-viz/internal/types"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		format TEXT NOT NULL,
		source TEXT NOT NULL,
		segment_count INTEGER NOT NULL,
		skipped_count INTEGER NOT NULL,
		warning_count INTEGER NOT NULL,
		duration REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);

	CREATE TABLE IF NOT EXISTS renders (
		id TEXT PRIMARY KEY,
		audio TEXT NOT NULL,
		transcript TEXT NOT NULL,
		output TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript records a parsed transcript
func (mdb *MetadataDB) SaveTranscript(rec types.TranscriptRecord) error {
	query := `
	INSERT INTO transcripts (id, filename, format, source, segment_count, skipped_count, warning_count, duration, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := mdb.db.Exec(query, rec.ID, rec.Filename, rec.Format, rec.Source,
		rec.SegmentCount, rec.SkippedCount, rec.WarningCount, rec.Duration, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}

	return nil
}

// ListTranscripts returns the most recent transcripts first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]types.TranscriptRecord, error) {
	query := `
	SELECT id, filename, format, source, segment_count, skipped_count, warning_count, duration, created_at
	FROM transcripts ORDER BY created_at DESC, rowid DESC LIMIT ?
	`

	rows, err := mdb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	records := []types.TranscriptRecord{}
	for rows.Next() {
		var (
			rec       types.TranscriptRecord
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Format, &rec.Source,
			&rec.SegmentCount, &rec.SkippedCount, &rec.WarningCount, &rec.Duration, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SaveRender inserts or updates a render job record
func (mdb *MetadataDB) SaveRender(rec types.RenderRecord) error {
	query := `
	INSERT INTO renders (id, audio, transcript, output, status, error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		output = excluded.output,
		status = excluded.status,
		error = excluded.error,
		updated_at = excluded.updated_at
	`

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	_, err := mdb.db.Exec(query, rec.ID, rec.Audio, rec.Transcript, rec.Output, rec.Status, rec.Error,
		rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save render %s: %w", rec.ID, err)
	}
	return nil
}

// GetRender retrieves a render job by ID
func (mdb *MetadataDB) GetRender(id string) (*types.RenderRecord, error) {
	query := `
	SELECT id, audio, transcript, output, status, error, created_at, updated_at
	FROM renders WHERE id = ?
	`

	var (
		rec                  types.RenderRecord
		createdAt, updatedAt int64
	)
	err := mdb.db.QueryRow(query, id).Scan(&rec.ID, &rec.Audio, &rec.Transcript, &rec.Output,
		&rec.Status, &rec.Error, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render %s: %w", id, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	rec.UpdatedAt = time.UnixMilli(updatedAt)
	return &rec, nil
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
