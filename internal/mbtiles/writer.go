package mbtiles

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/facetgrid/internal/tile"
)

// DefaultBatchSize is the number of tiles to buffer before flushing to the database.
const DefaultBatchSize = 64

type tileEntry struct {
	coords tile.Coords
	data   []byte
}

// Writer writes PNG tiles to an MBTiles database. It is safe for concurrent use.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []tileEntry
	batchSize int
	written   int
	mu        sync.Mutex
}

// Create creates (or truncates) an MBTiles database at path and stores meta.
func Create(path string, meta Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	setup := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		`CREATE TABLE IF NOT EXISTS metadata (name TEXT NOT NULL, value TEXT)`,
		`CREATE TABLE IF NOT EXISTS tiles (
			zoom_level INTEGER NOT NULL,
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			tile_data BLOB NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row)`,
		"DELETE FROM tiles",
		"DELETE FROM metadata",
	}
	for _, stmt := range setup {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database (%q): %w", stmt, err)
		}
	}

	for key, value := range meta.ToMap() {
		if _, err := db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", key, value); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]tileEntry, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

// Put queues a PNG tile addressed in XYZ order. Full batches are flushed automatically.
func (w *Writer) Put(c tile.Coords, png []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, tileEntry{coords: c, data: png})
	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Written returns the number of tiles committed so far.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Flush writes any buffered tiles to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range w.batch {
		if _, err := stmt.Exec(e.coords.Z, e.coords.X, tmsRow(e.coords), e.data); err != nil {
			return fmt.Errorf("failed to insert tile %s: %w", e.coords, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.written += len(w.batch)
	w.batch = w.batch[:0]
	return nil
}

// Close flushes any remaining tiles and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// tmsRow converts an XYZ row (origin top-left) to the TMS row stored in MBTiles (origin bottom-left).
func tmsRow(c tile.Coords) int {
	return (1 << c.Z) - 1 - c.Y
}
