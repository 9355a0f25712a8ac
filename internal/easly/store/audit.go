package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID           int64
	Timestamp    time.Time
	TraceID      string
	Actor        string
	Action       string
	Target       sql.NullString
	PayloadJSON  sql.NullString
	Result       string
	ErrorMessage sql.NullString
}

// AuditPayload is a structured audit payload. Callers redact secrets before
// passing it in.
type AuditPayload map[string]any

// Audit results.
const (
	AuditSuccess = "success"
	AuditError   = "error"
	AuditDenied  = "denied"
)

// WriteAudit appends an audit entry. actor is the client ID that issued the
// command; target is the affected document ID when there is one.
func (s *Store) WriteAudit(ctx context.Context, traceID, actor, action, target, result string, payload AuditPayload, errorMsg string) error {
	var payloadJSON sql.NullString
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store: marshal audit payload: %w", err)
		}
		payloadJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (ts, trace_id, actor, action, target, payload_json, result, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.now(), traceID, actor, action, nullString(target), payloadJSON, result, nullString(errorMsg))
	if err != nil {
		return fmt.Errorf("store: write audit: %w", err)
	}
	return nil
}

// GetAuditLog returns the most recent entries, newest first. A non-positive
// limit defaults to 100.
func (s *Store) GetAuditLog(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, actor, action, target, payload_json, result, error_message
		FROM audit_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query audit log: %w", err)
	}
	return scanAudit(rows)
}

// GetAuditByTrace returns every entry written under traceID, oldest first.
func (s *Store) GetAuditByTrace(ctx context.Context, traceID string) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, actor, action, target, payload_json, result, error_message
		FROM audit_log
		WHERE trace_id = ?
		ORDER BY id ASC
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("store: query audit by trace: %w", err)
	}
	return scanAudit(rows)
}

func scanAudit(rows *sql.Rows) ([]*AuditEntry, error) {
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.TraceID, &e.Actor,
			&e.Action, &e.Target, &e.PayloadJSON,
			&e.Result, &e.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("store: scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate audit log: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
