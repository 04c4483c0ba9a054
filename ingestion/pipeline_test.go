package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/weave/ai/mock"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/storage/badger"
)

func newTestRepo(t *testing.T) storage.DocumentRepository {
	t.Helper()
	docRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return docRepo
}

func TestNewPipeline_Validation(t *testing.T) {
	t.Run("nil repository", func(t *testing.T) {
		_, err := NewPipeline(nil, aimock.NewMockProvider())
		assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewPipeline(newTestRepo(t), nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		_, err := NewPipeline(newTestRepo(t), aimock.NewMockProvider(), WithChunkSize(0))
		assert.Error(t, err)
	})
}

func TestIngestDocument(t *testing.T) {
	repo := newTestRepo(t)
	pipeline, err := NewPipeline(repo, aimock.NewMockProvider())
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	text := "First paragraph about chemical storage.\n\nSecond paragraph about labeling."

	doc, err := pipeline.IngestDocument(ctx, 7, Source{Name: "safety.txt", Text: text})
	require.NoError(t, err)
	require.Len(t, doc.Fragments, 1)
	assert.Equal(t, 1, doc.Fragments[0].Page)
	assert.NotEmpty(t, doc.Fragments[0].Vector)
	assert.Contains(t, doc.Summary, "First paragraph")

	stored, err := repo.GetDocument(ctx, 7, "safety.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.Fragments, stored.Fragments)
}

func TestIngestDocument_SplitsLongText(t *testing.T) {
	pipeline, err := NewPipeline(newTestRepo(t), aimock.NewMockProvider(), WithChunkSize(50))
	require.NoError(t, err)
	defer pipeline.Release()

	text := strings.Repeat("A paragraph of some length here.\n\n", 5)
	doc, err := pipeline.IngestDocument(context.Background(), 7, Source{Name: "long.txt", Text: text})
	require.NoError(t, err)

	assert.Greater(t, len(doc.Fragments), 1)
	for i, frag := range doc.Fragments {
		assert.Equal(t, i+1, frag.Page)
	}
}

func TestIngestDocument_EmptySource(t *testing.T) {
	pipeline, err := NewPipeline(newTestRepo(t), aimock.NewMockProvider())
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.IngestDocument(context.Background(), 7, Source{Name: "empty.txt", Text: "  \n\n  "})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestIngestAll(t *testing.T) {
	repo := newTestRepo(t)
	pipeline, err := NewPipeline(repo, aimock.NewMockProvider(), WithPoolSize(2))
	require.NoError(t, err)
	defer pipeline.Release()

	sources := []Source{
		{Name: "a.txt", Text: "Contents of the first document."},
		{Name: "b.txt", Text: "Contents of the second document."},
		{Name: "c.txt", Text: "Contents of the third document."},
	}

	docs, err := pipeline.IngestAll(context.Background(), 7, sources...)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i, doc := range docs {
		require.NotNil(t, doc)
		assert.Equal(t, sources[i].Name, doc.Name)
	}

	listed, err := repo.ListDocuments(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestIngestAll_PartialFailure(t *testing.T) {
	embedder := aimock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if strings.Contains(texts[0], "poison") {
			return nil, errors.New("embedding service down")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}
	provider := aimock.NewMockProviderWithServices(embedder, aimock.NewMockGenerator())

	pipeline, err := NewPipeline(newTestRepo(t), provider)
	require.NoError(t, err)
	defer pipeline.Release()

	docs, err := pipeline.IngestAll(context.Background(), 7,
		Source{Name: "good.txt", Text: "fine contents"},
		Source{Name: "bad.txt", Text: "poison contents"},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.txt")
	require.Len(t, docs, 2)
	assert.NotNil(t, docs[0])
	assert.Nil(t, docs[1])
}

func TestChunkText(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, chunkText("", 100))
	})

	t.Run("single short paragraph", func(t *testing.T) {
		chunks := chunkText("just one paragraph", 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, "just one paragraph", chunks[0])
	})

	t.Run("packs short paragraphs together", func(t *testing.T) {
		chunks := chunkText("one\n\ntwo\n\nthree", 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, "one\n\ntwo\n\nthree", chunks[0])
	})

	t.Run("splits at chunk size", func(t *testing.T) {
		chunks := chunkText("aaaaaaaaaa\n\nbbbbbbbbbb\n\ncccccccccc", 15)
		assert.Len(t, chunks, 3)
	})

	t.Run("drops blank paragraphs", func(t *testing.T) {
		chunks := chunkText("one\n\n   \n\ntwo", 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, "one\n\ntwo", chunks[0])
	})
}

func TestSummarize(t *testing.T) {
	t.Run("short chunk unchanged", func(t *testing.T) {
		assert.Equal(t, "short text", summarize("short text"))
	})

	t.Run("long chunk truncated", func(t *testing.T) {
		long := strings.Repeat("x", 600)
		summary := summarize(long)
		assert.Len(t, []rune(summary), 503)
		assert.True(t, strings.HasSuffix(summary, "..."))
	})
}
