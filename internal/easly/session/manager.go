package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Manager reads and writes sessions through a KV.
type Manager struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

// NewManager returns a Manager. A non-positive ttl selects DefaultTTL.
func NewManager(kv KV, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{kv: kv, ttl: ttl, now: time.Now}
}

// SetClock overrides the time source.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Get returns the client's live session, or nil. An expired session is
// deleted and reported as absent.
func (m *Manager) Get(ctx context.Context, clientID string) (*Session, error) {
	if clientID == "" {
		return nil, nil
	}
	raw, err := m.kv.Get(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", clientID, err)
	}
	if raw == nil {
		return nil, nil
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt record is dropped rather than wedging the client.
		slog.Warn("discarding unreadable session", "client", clientID, "err", err)
		return nil, m.kv.Delete(ctx, clientID)
	}
	if s.ExpiresAt > 0 && m.now().UnixMilli() > s.ExpiresAt {
		if err := m.kv.Delete(ctx, clientID); err != nil {
			return nil, fmt.Errorf("session: expire %s: %w", clientID, err)
		}
		return nil, nil
	}
	return &s, nil
}

// Set merges p into the client's session, creating it when absent, and
// pushes the expiry to now + TTL.
func (m *Manager) Set(ctx context.Context, clientID string, p Patch) error {
	if clientID == "" {
		return nil
	}
	s, err := m.Get(ctx, clientID)
	if err != nil {
		return err
	}
	if s == nil {
		s = &Session{ClientID: clientID}
	}
	if p.PendingChoice != nil {
		s.PendingChoice = p.PendingChoice
	}
	if p.PendingCreateProduct != nil {
		s.PendingCreateProduct = p.PendingCreateProduct
	}
	if p.LastInventory != nil {
		s.LastInventory = p.LastInventory
	}
	if p.LastDesign != nil {
		s.LastDesign = p.LastDesign
	}
	return m.put(ctx, s)
}

// Clear removes the given keys from the client's session. With no keys the
// whole session is deleted.
func (m *Manager) Clear(ctx context.Context, clientID string, keys ...Key) error {
	if clientID == "" {
		return nil
	}
	if len(keys) == 0 {
		if err := m.kv.Delete(ctx, clientID); err != nil {
			return fmt.Errorf("session: delete %s: %w", clientID, err)
		}
		return nil
	}

	s, err := m.Get(ctx, clientID)
	if err != nil || s == nil {
		return err
	}
	for _, k := range keys {
		switch k {
		case KeyPendingChoice:
			s.PendingChoice = nil
		case KeyPendingCreateProduct:
			s.PendingCreateProduct = nil
		case KeyLastInventory:
			s.LastInventory = nil
		case KeyLastDesign:
			s.LastDesign = nil
		default:
			return fmt.Errorf("session: unknown key %q", k)
		}
	}
	return m.put(ctx, s)
}

func (m *Manager) put(ctx context.Context, s *Session) error {
	now := m.now()
	expires := now.Add(m.ttl)
	s.UpdatedAt = now.UTC()
	s.ExpiresAt = expires.UnixMilli()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal %s: %w", s.ClientID, err)
	}
	if err := m.kv.Put(ctx, s.ClientID, raw, expires); err != nil {
		return fmt.Errorf("session: put %s: %w", s.ClientID, err)
	}
	return nil
}
