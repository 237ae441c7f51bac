package main

import (
	"context"
	"sync"

	"github.com/chatguard-ai/chatguard/pkg/orchestrate"
	"github.com/chatguard-ai/chatguard/pkg/pipeline"
)

// conversationStore keeps per-user conversation history in memory. It backs
// both the pipeline's context provider and its recorder, so replies carry
// recent context without an external database.
type conversationStore struct {
	mu    sync.RWMutex
	turns map[string][]pipeline.StoredMessage
}

var (
	_ pipeline.ContextProvider = (*conversationStore)(nil)
	_ pipeline.Recorder        = (*conversationStore)(nil)
)

func newConversationStore() *conversationStore {
	return &conversationStore{
		turns: make(map[string][]pipeline.StoredMessage),
	}
}

func conversationKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

// Record appends one turn to the user's conversation.
func (s *conversationStore) Record(ctx context.Context, msg pipeline.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := conversationKey(msg.TenantID, msg.UserID)
	s.turns[key] = append(s.turns[key], msg)
	return nil
}

// History returns up to limit most recent turns, oldest first.
func (s *conversationStore) History(ctx context.Context, tenantID, userID string, limit int) ([]orchestrate.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.turns[conversationKey(tenantID, userID)]
	if limit > 0 && len(stored) > limit {
		stored = stored[len(stored)-limit:]
	}

	history := make([]orchestrate.Message, 0, len(stored))
	for _, msg := range stored {
		history = append(history, orchestrate.Message{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		})
	}
	return history, nil
}
