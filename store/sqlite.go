package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/jacentio/pantry/item"
	"github.com/jacentio/pantry/query"
)

// Sqlite is a single-file Gateway for local development. Documents are
// stored as JSON rows and queries are applied in memory.
//
// Table:
//
//	documents(collection, id, data)  PRIMARY KEY (collection, id)
type Sqlite struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSqlite opens (or creates) the database at dbPath.
func NewSqlite(dbPath string) (*Sqlite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &Sqlite{db: db}, nil
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}

func (s *Sqlite) List(ctx context.Context, collection string, q query.Query) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM documents WHERE collection = ? ORDER BY rowid", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []map[string]any{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		if !q.Matches(doc) {
			continue
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	q.Sort(docs)
	for i, doc := range docs {
		docs[i] = q.Project(doc)
	}
	return docs, nil
}

func (s *Sqlite) Get(ctx context.Context, collection string, id item.ID) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx, collection, id)
}

// load reads a document without taking the lock; callers hold it.
func (s *Sqlite) load(ctx context.Context, collection string, id item.ID) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id.String(),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func (s *Sqlite) Create(ctx context.Context, collection string, fields item.Fields) (item.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := item.NewID()
	doc := map[string]any{"id": id.String()}
	for k, v := range fields {
		doc[k] = v
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, id.String(), string(b))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Sqlite) Replace(ctx context.Context, collection string, id item.ID, fields item.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, collection, id)
	if err != nil {
		return err
	}
	doc := map[string]any{"id": id.String()}
	if created, ok := current["createdAt"]; ok {
		doc["createdAt"] = created
	}
	for k, v := range fields {
		doc[k] = v
	}
	return s.save(ctx, collection, id, doc)
}

func (s *Sqlite) Patch(ctx context.Context, collection string, id item.ID, fields item.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	return s.save(ctx, collection, id, doc)
}

func (s *Sqlite) save(ctx context.Context, collection string, id item.ID, doc map[string]any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
		string(b), collection, id.String())
	return err
}

func (s *Sqlite) Delete(ctx context.Context, collection string, id item.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id.String())
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
