package storage

import (
	"context"

	"github.com/poiesic/weave/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing user documents and
// their fragment vectors.
type DocumentRepository interface {
	Repository
	// PutDocument stores a document, overwriting any existing document with
	// the same owner and name. Sets InsertedAt on first write and UpdatedAt
	// on every write.
	PutDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by owner and name.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, ownerID int64, name string) (*core.Document, error)

	// ListDocuments retrieves all documents belonging to an owner,
	// in name order.
	ListDocuments(ctx context.Context, ownerID int64) ([]*core.Document, error)

	// DeleteDocument removes a document by owner and name.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, ownerID int64, name string) error
}

// HistoryRepository provides operations for conversation history.
type HistoryRepository interface {
	Repository
	// AppendTurns appends one or more turns to a chat's history.
	// Turns with a zero Timestamp get the current time.
	AppendTurns(ctx context.Context, chatID string, turns ...*core.ChatTurn) error

	// RecentTurns retrieves the N most recent turns of a chat, oldest first.
	// Returns up to limit turns; an unknown chat yields an empty slice.
	RecentTurns(ctx context.Context, chatID string, limit int) ([]*core.ChatTurn, error)
}
