package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopeasly/easly/internal/easly/docstore"
)

// DocumentStore is the SQLite implementation of docstore.Store.
type DocumentStore struct {
	s *Store
}

var _ docstore.Store = (*DocumentStore)(nil)

// Documents returns the document collection view of the store.
func (s *Store) Documents() *DocumentStore {
	return &DocumentStore{s: s}
}

// List implements docstore.Store.
func (d *DocumentStore) List(ctx context.Context, collection string, limit int) ([]docstore.Document, error) {
	query := `SELECT id, data FROM documents WHERE collection = ? ORDER BY seq DESC`
	args := []any{collection}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", collection, err)
		}
		docs = append(docs, docstore.Document{ID: id, Data: json.RawMessage(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate %s: %w", collection, err)
	}
	return docs, nil
}

// Get implements docstore.Store.
func (d *DocumentStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	var data string
	err := d.s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s/%s: %w", collection, id, err)
	}
	return &docstore.Document{ID: id, Data: json.RawMessage(data)}, nil
}

// Create implements docstore.Store.
func (d *DocumentStore) Create(ctx context.Context, collection string, data any) (string, error) {
	body, err := objectJSON(data)
	if err != nil {
		return "", fmt.Errorf("store: create %s: %w", collection, err)
	}

	id := uuid.NewString()
	now := d.s.now()
	_, err = d.s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, json_remove(?, '$.id'), ?, ?)
	`, collection, id, body, now, now)
	if err != nil {
		return "", fmt.Errorf("store: create %s: %w", collection, err)
	}
	return id, nil
}

// Update implements docstore.Store using SQLite's json_patch, which follows
// RFC 7396 merge-patch semantics.
func (d *DocumentStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("store: update %s/%s: marshal patch: %w", collection, id, err)
	}

	res, err := d.s.db.ExecContext(ctx, `
		UPDATE documents SET data = json_patch(data, ?), updated_at = ?
		WHERE collection = ? AND id = ?
	`, string(body), d.s.now(), collection, id)
	if err != nil {
		return fmt.Errorf("store: update %s/%s: %w", collection, id, err)
	}
	return expectOneRow(res)
}

// Delete implements docstore.Store.
func (d *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	res, err := d.s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id,
	)
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func objectJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return "", errors.New("document must be a JSON object")
	}
	return string(raw), nil
}
