package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionKV persists opaque session records keyed by client ID. It satisfies
// session.KV. Each Put replaces the whole row, so readers never observe a
// partially written session.
type SessionKV struct {
	s *Store
}

// Sessions returns the session view of the store.
func (s *Store) Sessions() *SessionKV {
	return &SessionKV{s: s}
}

// Get returns the stored record for clientID, or (nil, nil) when there is
// none. Expiry is the caller's concern.
func (k *SessionKV) Get(ctx context.Context, clientID string) ([]byte, error) {
	var data string
	err := k.s.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE client_id = ?`, clientID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session %s: %w", clientID, err)
	}
	return []byte(data), nil
}

// Put upserts the record for clientID.
func (k *SessionKV) Put(ctx context.Context, clientID string, data []byte, expiresAt time.Time) error {
	_, err := k.s.db.ExecContext(ctx, `
		INSERT INTO sessions (client_id, data, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, clientID, string(data), expiresAt.UnixMilli(), k.s.now())
	if err != nil {
		return fmt.Errorf("store: put session %s: %w", clientID, err)
	}
	return nil
}

// Delete removes the record for clientID. Deleting a missing record is not
// an error.
func (k *SessionKV) Delete(ctx context.Context, clientID string) error {
	if _, err := k.s.db.ExecContext(ctx, `DELETE FROM sessions WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("store: delete session %s: %w", clientID, err)
	}
	return nil
}

// PurgeExpired deletes sessions whose expiry is before now and returns how
// many were removed.
func (k *SessionKV) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := k.s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, k.s.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: purge sessions: %w", err)
	}
	return res.RowsAffected()
}
