package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

// HistoryRepository implements storage.HistoryRepository for BadgerDB.
type HistoryRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(backend *Backend) (*HistoryRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	idSeq, err := backend.GetSequence(histTurnSeq)
	if err != nil {
		return nil, err
	}

	return &HistoryRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *HistoryRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *HistoryRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AppendTurns appends one or more turns to a chat's history.
func (r *HistoryRepository) AppendTurns(ctx context.Context, chatID string, turns ...*core.ChatTurn) error {
	if chatID == "" {
		return storage.ErrInvalidQuery
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, turn := range turns {
			if turn.Timestamp.IsZero() {
				turn.Timestamp = time.Now().UTC()
			}
			if err := core.ValidateChatTurn(turn); err != nil {
				return err
			}

			seq, err := r.idSeq.Next()
			if err != nil {
				return err
			}

			key := makeHistoryKey(chatID, turn.Timestamp, seq)
			value := storage.MarshalChatTurn(turn)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// RecentTurns retrieves the N most recent turns of a chat, oldest first.
func (r *HistoryRepository) RecentTurns(ctx context.Context, chatID string, limit int) ([]*core.ChatTurn, error) {
	if chatID == "" {
		return nil, storage.ErrInvalidQuery
	}
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.ChatTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeHistoryPrefix(chatID)

		// Walk backwards from the end of the chat's key range to pick up the
		// newest turns first.
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		startKey := makeHistoryKey(chatID, time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC), ^uint64(0))

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}

			var turn *core.ChatTurn
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				turn, err = storage.UnmarshalChatTurn(val)
				return err
			}); err != nil {
				return err
			}
			if turn != nil {
				results = append(results, turn)
				count++
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Reverse to oldest-first order for prompt assembly.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	return results, nil
}
