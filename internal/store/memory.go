package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finbot-ai/agent-platform/internal/model"
)

// MemoryStore keeps conversations in process memory. It satisfies Store and
// is safe for concurrent use; appends to the same conversation never
// interleave.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	order         []string

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*model.Conversation),
		now:           time.Now,
	}
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(id string) (*model.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		conv, exists := s.conversations[id]
		if !exists {
			return nil, false, ErrNotFound
		}
		return snapshot(conv), false, nil
	}

	now := s.now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
	s.conversations[conv.ID] = conv
	s.order = append(s.order, conv.ID)

	return snapshot(conv), true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}
	return snapshot(conv), nil
}

// Append implements Store.
func (s *MemoryStore) Append(id string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[id]
	if !exists {
		return ErrNotFound
	}

	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = s.now()
	return nil
}

// ListIDs implements Store.
func (s *MemoryStore) ListIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Delete implements Store.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[id]; !exists {
		return ErrNotFound
	}
	delete(s.conversations, id)

	for i, known := range s.order {
		if known == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// snapshot returns a copy the caller may read without holding the store
// lock. The message slice is copied so later appends do not alias it.
func snapshot(conv *model.Conversation) *model.Conversation {
	cp := *conv
	cp.Messages = make([]model.Message, len(conv.Messages))
	copy(cp.Messages, conv.Messages)
	if conv.Metadata != nil {
		cp.Metadata = make(map[string]any, len(conv.Metadata))
		for k, v := range conv.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
