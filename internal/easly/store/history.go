package store

import (
	"context"
	"fmt"
	"time"
)

// ChatMessage is one line of a client's conversation.
type ChatMessage struct {
	ID       int64
	ClientID string
	Role     string // "user" or "assistant"
	Text     string
	Source   string
	At       time.Time
}

// AppendChat records a message in the client's history.
func (s *Store) AppendChat(ctx context.Context, clientID, role, text, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (client_id, role, text, source, ts)
		VALUES (?, ?, ?, ?, ?)
	`, clientID, role, text, nullString(source), s.now())
	if err != nil {
		return fmt.Errorf("store: append chat: %w", err)
	}
	return nil
}

// RecentChat returns up to limit of the client's latest messages in
// chronological order.
func (s *Store) RecentChat(ctx context.Context, clientID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, role, text, COALESCE(source, ''), ts FROM (
			SELECT * FROM chat_history WHERE client_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query chat: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ClientID, &m.Role, &m.Text, &m.Source, &m.At); err != nil {
			return nil, fmt.Errorf("store: scan chat: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate chat: %w", err)
	}
	return out, nil
}
