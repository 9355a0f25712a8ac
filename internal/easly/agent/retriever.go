package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopeasly/easly/internal/easly/store"
)

// Retriever supplies background context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, clientID, question string) (string, error)
}

// ChatSource is the part of the store a HistoryRetriever reads.
type ChatSource interface {
	RecentChat(ctx context.Context, clientID string, limit int) ([]store.ChatMessage, error)
}

// HistoryRetriever returns the client's recent conversation as context.
type HistoryRetriever struct {
	Chats ChatSource
	Limit int
}

// Retrieve renders up to Limit recent messages, oldest first, one per line.
func (h HistoryRetriever) Retrieve(ctx context.Context, clientID, _ string) (string, error) {
	if h.Chats == nil || clientID == "" {
		return "", nil
	}
	msgs, err := h.Chats.RecentChat(ctx, clientID, h.Limit)
	if err != nil {
		return "", fmt.Errorf("agent: load history: %w", err)
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "Source: chat/%s | %s\n", m.Role, m.Text)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
