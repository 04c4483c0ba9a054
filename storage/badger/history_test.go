package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecentTurns(t *testing.T) {
	_, histRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		histRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	turns := []*core.ChatTurn{
		{Speaker: core.SpeakerTypeHuman, Contents: "first question", Timestamp: base},
		{Speaker: core.SpeakerTypeAI, Contents: "first answer", Timestamp: base.Add(time.Second)},
		{Speaker: core.SpeakerTypeHuman, Contents: "second question", Timestamp: base.Add(2 * time.Second)},
	}
	require.NoError(t, histRepo.AppendTurns(ctx, "chat-1", turns...))

	got, err := histRepo.RecentTurns(ctx, "chat-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Oldest first
	assert.Equal(t, "first question", got[0].Contents)
	assert.Equal(t, "first answer", got[1].Contents)
	assert.Equal(t, "second question", got[2].Contents)
}

func TestRecentTurns_Limit(t *testing.T) {
	_, histRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		histRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 6; i++ {
		turn := &core.ChatTurn{
			Speaker:   core.SpeakerTypeHuman,
			Contents:  string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, histRepo.AppendTurns(ctx, "chat-1", turn))
	}

	got, err := histRepo.RecentTurns(ctx, "chat-1", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)

	// The most recent four, oldest first
	assert.Equal(t, "c", got[0].Contents)
	assert.Equal(t, "f", got[3].Contents)
}

func TestRecentTurns_UnknownChat(t *testing.T) {
	_, histRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		histRepo.Close()
		backend.Close()
	}()

	got, err := histRepo.RecentTurns(context.Background(), "no-such-chat", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistory_ChatIsolation(t *testing.T) {
	_, histRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		histRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, histRepo.AppendTurns(ctx, "chat-1",
		&core.ChatTurn{Speaker: core.SpeakerTypeHuman, Contents: "for one", Timestamp: now}))
	require.NoError(t, histRepo.AppendTurns(ctx, "chat-2",
		&core.ChatTurn{Speaker: core.SpeakerTypeHuman, Contents: "for two", Timestamp: now}))

	got, err := histRepo.RecentTurns(ctx, "chat-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "for one", got[0].Contents)
}

func TestAppendTurns_ZeroTimestamp(t *testing.T) {
	_, histRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		histRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	turn := &core.ChatTurn{Speaker: core.SpeakerTypeAI, Contents: "no timestamp"}
	require.NoError(t, histRepo.AppendTurns(ctx, "chat-1", turn))

	got, err := histRepo.RecentTurns(ctx, "chat-1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestAppendTurns_EmptyChatID(t *testing.T) {
	_, histRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		histRepo.Close()
		backend.Close()
	}()

	err = histRepo.AppendTurns(context.Background(), "",
		&core.ChatTurn{Speaker: core.SpeakerTypeHuman, Contents: "x", Timestamp: time.Now()})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestAppendTurns_InvalidTurn(t *testing.T) {
	_, histRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		histRepo.Close()
		backend.Close()
	}()

	err = histRepo.AppendTurns(context.Background(), "chat-1",
		&core.ChatTurn{Speaker: core.SpeakerTypeHuman, Contents: "", Timestamp: time.Now()})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}
