// Package store provides conversation transcript storage.
package store

import (
	"errors"

	"github.com/finbot-ai/agent-platform/internal/model"
)

// ErrNotFound is returned when a conversation ID is unknown to the store.
var ErrNotFound = errors.New("conversation not found")

// Store is the conversation storage capability injected into the agent
// loop. The in-memory implementation is process-lifetime only; a persistent
// backend can replace it without touching the loop.
type Store interface {
	// GetOrCreate returns the conversation for id, or allocates a fresh
	// conversation when id is empty. A non-empty unknown id fails with
	// ErrNotFound rather than silently creating state.
	GetOrCreate(id string) (conv *model.Conversation, isNew bool, err error)

	// Get returns a snapshot of the conversation.
	Get(id string) (*model.Conversation, error)

	// Append adds a message to the transcript and bumps the update time.
	Append(id string, msg model.Message) error

	// ListIDs returns all known conversation IDs in insertion order.
	ListIDs() []string

	// Delete removes the conversation. Deleting an unknown id is an error,
	// not a no-op.
	Delete(id string) error
}
