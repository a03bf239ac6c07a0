// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"poetloop/domain"
)

// Store defines the interface for data persistence. Reads of absent records
// return nil or empty results, never errors; mutations targeting unknown
// conversations fail with domain.ErrNotFound. Timestamps are supplied by the
// caller (the API layer owns the clock).
type Store interface {
	// Conversation operations
	CreateConversation(ctx context.Context, title string, now int64) (*domain.Conversation, error)
	AppendMessages(ctx context.Context, conversationID int64, messages []domain.StoredMessage, now int64) (*domain.Conversation, error)
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	GetMessages(ctx context.Context, conversationID int64) ([]domain.StoredMessage, error)
	GetConversationWithMessages(ctx context.Context, conversationID int64) (*domain.ConversationWithMessages, error)
	DeleteConversation(ctx context.Context, conversationID int64) (bool, error)
	RenameConversation(ctx context.Context, conversationID int64, title string) (bool, error)

	// Poem operations
	PutPoemCycle(ctx context.Context, cycle *domain.PoemCycle) error
	CommitCycle(ctx context.Context, cycle *domain.PoemCycle, state *domain.PoetState) error
	GetCurrentPoem(ctx context.Context) (*domain.PoemCycle, error)
	GetPoemByCycle(ctx context.Context, cycleNumber int64) (*domain.PoemCycle, error)
	ListAllPoems(ctx context.Context) ([]domain.PoemCycle, error)
	GetRawResponse(ctx context.Context, cycleNumber int64) (*string, error)
	GetPoetState(ctx context.Context) (*domain.PoetState, error)
	PutPoetState(ctx context.Context, state *domain.PoetState) error
	ResetPoet(ctx context.Context) (bool, error)

	// Lifecycle
	Close() error
}
