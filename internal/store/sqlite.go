package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/akleaf/vendor-pipeline/internal/model"
)

// regionsCollection is the collection holding the region lookup table.
const regionsCollection = "regions"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	position   INTEGER,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAll returns every document in a collection in insertion order.
func (s *SQLiteStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY position, rowid`,
		collection,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s", collection)
	}
	defer rows.Close() //nolint:errcheck

	var docs []Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode document %s/%s", collection, id)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: iterate documents")
}

// Set writes a single document. With merge, existing top-level keys not
// present in doc are retained.
func (s *SQLiteStore) Set(ctx context.Context, collection, id string, doc map[string]any, merge bool) error {
	return s.setTx(ctx, s.db, collection, id, doc, merge, nil)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) setTx(ctx context.Context, ex execer, collection, id string, doc map[string]any, merge bool, position *int) error {
	if merge {
		var existing string
		err := ex.QueryRowContext(ctx,
			`SELECT data FROM documents WHERE collection = ? AND id = ?`,
			collection, id,
		).Scan(&existing)
		switch {
		case err == nil:
			var base map[string]any
			if decodeErr := json.Unmarshal([]byte(existing), &base); decodeErr == nil {
				for k, v := range doc {
					base[k] = v
				}
				doc = base
			}
		case err != sql.ErrNoRows:
			return eris.Wrapf(err, "sqlite: read %s/%s for merge", collection, id)
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrapf(err, "sqlite: encode %s/%s", collection, id)
	}

	var pos any
	if position != nil {
		pos = *position
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, position, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			position = COALESCE(excluded.position, documents.position),
			updated_at = excluded.updated_at`,
		collection, id, string(raw), pos, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set %s/%s", collection, id)
}

// SetBatch writes documents in chunks of MaxBatchSize, each chunk in its own
// transaction. A failing chunk stops the batch; chunks already committed stay
// persisted and are reported in the returned stats.
func (s *SQLiteStore) SetBatch(ctx context.Context, collection string, docs []Document, merge bool) (BatchStats, error) {
	stats := BatchStats{Total: len(docs)}

	for start := 0; start < len(docs); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(docs))
		chunk := docs[start:end]

		if err := s.commitChunk(ctx, collection, chunk, merge); err != nil {
			stats.Failed = len(docs) - stats.Successful
			return stats, eris.Wrapf(err, "sqlite: batch write %s", collection)
		}
		stats.Successful += len(chunk)
	}
	return stats, nil
}

func (s *SQLiteStore) commitChunk(ctx context.Context, collection string, chunk []Document, merge bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin")
	}
	for _, doc := range chunk {
		if err := s.setTx(ctx, tx, collection, doc.ID, doc.Data, merge, nil); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return eris.Wrap(tx.Commit(), "commit")
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	return eris.Wrapf(err, "sqlite: delete %s/%s", collection, id)
}

// LoadRegions reads the region lookup table in stored order.
func (s *SQLiteStore) LoadRegions(ctx context.Context) ([]model.Region, error) {
	docs, err := s.GetAll(ctx, regionsCollection)
	if err != nil {
		return nil, err
	}

	regions := make([]model.Region, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc.Data)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: encode region %s", doc.ID)
		}
		var r model.Region
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode region %s", doc.ID)
		}
		if r.ID == "" {
			r.ID = doc.ID
		}
		r.DedupeZips()
		regions = append(regions, r)
	}
	return regions, nil
}

// SaveRegions replaces the region lookup table, preserving list order via the
// position column.
func (s *SQLiteStore) SaveRegions(ctx context.Context, regions []model.Region) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save regions")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ?`, regionsCollection,
	); err != nil {
		_ = tx.Rollback()
		return eris.Wrap(err, "sqlite: clear regions")
	}

	for i, r := range regions {
		r.DedupeZips()
		raw, err := json.Marshal(r)
		if err != nil {
			_ = tx.Rollback()
			return eris.Wrapf(err, "sqlite: encode region %s", r.ID)
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			_ = tx.Rollback()
			return eris.Wrapf(err, "sqlite: round-trip region %s", r.ID)
		}
		pos := i
		if err := s.setTx(ctx, tx, regionsCollection, r.ID, data, false, &pos); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit regions")
}
