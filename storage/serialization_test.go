package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/weave/core"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		doc  *core.Document
	}{
		{
			name: "document with fragments",
			doc: &core.Document{
				Name:    "retention-policy.pdf",
				OwnerID: 7,
				Fragments: []core.FragmentVector{
					{Vector: []float32{0.1, 0.2, 0.3}, Text: "records are kept for seven years", Page: 1},
					{Vector: []float32{0.4, 0.5, 0.6}, Text: "archival procedures", Page: 2},
				},
				Summary:    "Retention rules for corporate records.",
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "document without fragments",
			doc: &core.Document{
				Name:       "empty.txt",
				OwnerID:    3,
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "unicode content",
			doc: &core.Document{
				Name:    "notes.txt",
				OwnerID: 7,
				Fragments: []core.FragmentVector{
					{Vector: []float32{1}, Text: "日本語のテキスト with émojis 🎉", Page: 1},
				},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalDocument(tt.doc)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalDocument(data)
			require.NoError(t, err)
			assert.Equal(t, tt.doc.Name, decoded.Name)
			assert.Equal(t, tt.doc.OwnerID, decoded.OwnerID)
			assert.Equal(t, tt.doc.Summary, decoded.Summary)
			assert.Equal(t, tt.doc.Fragments, decoded.Fragments)
			assert.True(t, tt.doc.InsertedAt.Equal(decoded.InsertedAt))
			assert.True(t, tt.doc.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestUnmarshalDocument_Invalid(t *testing.T) {
	_, err := UnmarshalDocument([]byte{0xff, 0x01})
	assert.Error(t, err)
}

func TestMarshalUnmarshalChatTurn(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		turn *core.ChatTurn
	}{
		{
			name: "human turn",
			turn: &core.ChatTurn{Speaker: core.SpeakerTypeHuman, Contents: "what are the retention rules?", Timestamp: now},
		},
		{
			name: "assistant turn",
			turn: &core.ChatTurn{Speaker: core.SpeakerTypeAI, Contents: "Records must be kept for seven years [Policy].", Timestamp: now},
		},
		{
			name: "empty contents",
			turn: &core.ChatTurn{Speaker: core.SpeakerTypeHuman, Timestamp: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChatTurn(tt.turn)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChatTurn(data)
			require.NoError(t, err)
			assert.Equal(t, tt.turn.Speaker, decoded.Speaker)
			assert.Equal(t, tt.turn.Contents, decoded.Contents)
			assert.True(t, tt.turn.Timestamp.Equal(decoded.Timestamp))
		})
	}
}
