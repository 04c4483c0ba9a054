package retrieve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/weave/ai"
	aimock "github.com/poiesic/weave/ai/mock"
	"github.com/poiesic/weave/cache"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/rank"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/storage/badger"
	"github.com/poiesic/weave/webfetch"
	searchmock "github.com/poiesic/weave/websearch/mock"
)

// unitVector returns a unit-length 2D vector whose cosine similarity
// against [1, 0] equals sim.
func unitVector(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

var queryVector = []float32{1, 0}

func newTestProvider() (ai.AIProvider, *aimock.MockEmbedder, *aimock.MockGenerator) {
	embedder := aimock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return queryVector, nil
	}
	generator := aimock.NewMockGenerator()
	provider := aimock.NewMockProviderWithServices(embedder, generator)
	return provider, embedder, generator
}

func newTestFetcher(t *testing.T) *webfetch.Fetcher {
	t.Helper()
	fetcher, err := webfetch.NewFetcher(webfetch.WithRateLimit(1000, 10))
	require.NoError(t, err)
	t.Cleanup(fetcher.Close)
	return fetcher
}

func newTestRepo(t *testing.T) storage.DocumentRepository {
	t.Helper()
	docRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		docRepo.Close()
		backend.Close()
	})
	return docRepo
}

func storeDocument(t *testing.T, repo storage.DocumentRepository, owner int64, name string, frags ...core.FragmentVector) {
	t.Helper()
	_, err := repo.PutDocument(context.Background(), &core.Document{
		Name:      name,
		OwnerID:   owner,
		Summary:   "summary of " + name,
		Fragments: frags,
	})
	require.NoError(t, err)
}

func TestNewOrchestrator_Validation(t *testing.T) {
	repo := newTestRepo(t)
	provider, _, _ := newTestProvider()
	search := searchmock.NewMockProvider()
	fetcher := newTestFetcher(t)

	_, err := NewOrchestrator(nil, provider, search, fetcher)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewOrchestrator(repo, nil, search, fetcher)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewOrchestrator(repo, provider, nil, fetcher)
	assert.ErrorIs(t, err, ErrSearchProviderRequired)

	_, err = NewOrchestrator(repo, provider, search, nil)
	assert.ErrorIs(t, err, ErrFetcherRequired)
}

func TestRetrieveContext_InputValidation(t *testing.T) {
	repo := newTestRepo(t)
	provider, _, _ := newTestProvider()

	o, err := NewOrchestrator(repo, provider, searchmock.NewMockProvider(), newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	ctx := context.Background()

	_, err = o.RetrieveContext(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = o.RetrieveContext(ctx, &Request{Query: "   ", OwnerID: 1})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = o.RetrieveContext(ctx, &Request{Query: "data retention policy"})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestRetrieveContext_DocumentReferences(t *testing.T) {
	repo := newTestRepo(t)
	storeDocument(t, repo, 42, "retention-policy.pdf",
		core.FragmentVector{Vector: unitVector(0.82), Text: "records are kept for seven years", Page: 3},
	)

	provider, _, _ := newTestProvider()
	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "data retention policy", OwnerID: 42})
	require.NoError(t, err)

	require.Len(t, result.References, 1)
	ref := result.References[0]
	assert.Equal(t, "retention-policy.pdf", ref.Name)
	assert.Equal(t, []int{3}, ref.Pages)
	assert.InDelta(t, 0.82, ref.BestSimilarity, 1e-3)

	assert.Contains(t, result.Context, "[retention-policy.pdf Page 3]")
	assert.Contains(t, result.Context, "records are kept for seven years")
}

func TestRetrieveContext_ProbeFails(t *testing.T) {
	repo := newTestRepo(t)
	storeDocument(t, repo, 42, "policy.pdf",
		core.FragmentVector{Vector: unitVector(0.9), Text: "policy text", Page: 1},
	)

	provider, _, _ := newTestProvider()
	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "policy", OwnerID: 42})
	require.NoError(t, err)

	assert.Equal(t, []string{}, result.Media.Images)
	assert.Equal(t, []string{}, result.Media.Videos)
	assert.Empty(t, result.Sources)
	assert.NotContains(t, result.Context, "Online Sources:")
	assert.Contains(t, result.Context, "policy text")
}

func TestRetrieveContext_ReferenceOrdering(t *testing.T) {
	repo := newTestRepo(t)
	storeDocument(t, repo, 42, "weaker.pdf",
		core.FragmentVector{Vector: unitVector(0.5), Text: "weaker match", Page: 1},
	)
	storeDocument(t, repo, 42, "stronger.pdf",
		core.FragmentVector{Vector: unitVector(0.7), Text: "stronger match", Page: 1},
	)

	provider, _, _ := newTestProvider()
	search := searchmock.NewMockProvider()
	search.Available = false

	ranker, err := rank.NewRanker(rank.WithFragThreshold(0.45))
	require.NoError(t, err)

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t), WithRanker(ranker))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "match", OwnerID: 42})
	require.NoError(t, err)

	require.Len(t, result.References, 2)
	assert.Equal(t, "stronger.pdf", result.References[0].Name)
	assert.Equal(t, "weaker.pdf", result.References[1].Name)
	assert.Greater(t, result.References[0].BestSimilarity, result.References[1].BestSimilarity)
}

func TestRetrieveContext_OwnerIsolation(t *testing.T) {
	repo := newTestRepo(t)
	storeDocument(t, repo, 7, "other-owners.pdf",
		core.FragmentVector{Vector: unitVector(0.95), Text: "not yours", Page: 1},
	)

	provider, _, _ := newTestProvider()
	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "anything", OwnerID: 42})
	require.NoError(t, err)

	assert.Empty(t, result.References)
	assert.NotContains(t, result.Context, "not yours")
}

func TestRetrieveContext_WebBranch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>regulations summary from the web</p></body></html>")
	}))
	defer server.Close()

	repo := newTestRepo(t)
	provider, _, _ := newTestProvider()

	search := searchmock.NewMockProvider()
	search.SearchLinksFunc = func(ctx context.Context, query string, n int) []*core.WebSource {
		return []*core.WebSource{{URL: server.URL, Title: "Regulations", Snippet: "summary"}}
	}

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "regulations", OwnerID: 42})
	require.NoError(t, err)

	assert.Contains(t, result.Context, "Online Sources:")
	assert.Contains(t, result.Context, "Source: "+server.URL)
	assert.Contains(t, result.Context, "regulations summary from the web")
	require.Len(t, result.Sources, 1)
	assert.Equal(t, server.URL, result.Sources[0].URL)
	assert.NotEmpty(t, result.Media.Images)
	assert.NotEmpty(t, result.Media.Videos)
}

func TestRetrieveContext_FetchStageTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>too late</body></html>")
	}))
	defer server.Close()

	repo := newTestRepo(t)
	storeDocument(t, repo, 42, "policy.pdf",
		core.FragmentVector{Vector: unitVector(0.9), Text: "policy text", Page: 1},
	)
	provider, _, _ := newTestProvider()

	search := searchmock.NewMockProvider()
	search.SearchLinksFunc = func(ctx context.Context, query string, n int) []*core.WebSource {
		return []*core.WebSource{{URL: server.URL}}
	}

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t),
		WithFetchTimeout(50*time.Millisecond))
	require.NoError(t, err)
	defer o.Close()

	start := time.Now()
	result, err := o.RetrieveContext(context.Background(), &Request{Query: "policy", OwnerID: 42})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.NotContains(t, result.Context, "Online Sources:")
	assert.Contains(t, result.Context, "policy text")
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRetrieveContext_ChatName(t *testing.T) {
	repo := newTestRepo(t)
	provider, _, generator := newTestProvider()
	generator.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		if strings.Contains(systemPrompt, "Chat Title") {
			return `"osha chemical storage requirements"`, nil
		}
		return "", errors.New("unexpected prompt")
	}

	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "chemical storage rules", OwnerID: 42})
	require.NoError(t, err)

	assert.Equal(t, "Osha Chemical Storage Requirements", result.ChatName)
}

func TestRetrieveContext_ChatNameFallback(t *testing.T) {
	repo := newTestRepo(t)
	provider, _, generator := newTestProvider()
	generator.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", fmt.Errorf("%w: model offline", ai.ErrInference)
	}

	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "what are the GDPR breach notification deadlines", OwnerID: 42})
	require.NoError(t, err)

	assert.Equal(t, "What Are The Gdpr", result.ChatName)
}

func TestRetrieveContext_RelatedQueries(t *testing.T) {
	repo := newTestRepo(t)
	provider, _, generator := newTestProvider()
	generator.GenerateJSONFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "```json\n{\"relevant_queries\": [\"q1\", \"q2\", \"q3\", \"q4\", \"q5\"]}\n```", nil
	}

	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "audits", OwnerID: 42})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5"}, result.RelatedQueries)
}

func TestRetrieveContext_RelatedQueriesFallback(t *testing.T) {
	repo := newTestRepo(t)
	provider, _, generator := newTestProvider()
	generator.GenerateJSONFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "not json at all", nil
	}

	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "iso 9001", OwnerID: 42})
	require.NoError(t, err)

	require.Len(t, result.RelatedQueries, 5)
	assert.Equal(t, "What are the best practices for iso 9001?", result.RelatedQueries[0])
	for _, q := range result.RelatedQueries {
		assert.Contains(t, q, "iso 9001")
	}
}

func TestRetrieveContext_PartialModelQueries(t *testing.T) {
	repo := newTestRepo(t)
	provider, _, generator := newTestProvider()
	generator.GenerateJSONFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return `{"relevant_queries": ["only one question"]}`, nil
	}

	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	result, err := o.RetrieveContext(context.Background(), &Request{Query: "soc 2", OwnerID: 42})
	require.NoError(t, err)

	require.Len(t, result.RelatedQueries, 5)
	assert.Equal(t, "only one question", result.RelatedQueries[0])
	assert.Contains(t, result.RelatedQueries[1], "soc 2")
}

func TestRetrieveContext_InferenceCache(t *testing.T) {
	repo := newTestRepo(t)
	_, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	inference, err := cache.New[string]("inference", backend, cache.StringCodec{})
	require.NoError(t, err)

	provider, _, generator := newTestProvider()
	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t), WithInferenceCache(inference))
	require.NoError(t, err)
	defer o.Close()

	req := &Request{Query: "recurring question", OwnerID: 42}

	_, err = o.RetrieveContext(context.Background(), req)
	require.NoError(t, err)
	callsAfterFirst := generator.CallCount()
	assert.Equal(t, 2, callsAfterFirst)

	_, err = o.RetrieveContext(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, generator.CallCount())
}

func TestRetrieveContext_Monitor(t *testing.T) {
	repo := newTestRepo(t)
	storeDocument(t, repo, 42, "policy.pdf",
		core.FragmentVector{Vector: unitVector(0.9), Text: "policy text", Page: 1},
	)
	provider, _, _ := newTestProvider()
	search := searchmock.NewMockProvider()
	search.Available = false

	o, err := NewOrchestrator(repo, provider, search, newTestFetcher(t))
	require.NoError(t, err)
	defer o.Close()

	monitor := &recordingMonitor{}
	result, err := o.RetrieveContextWithMonitor(context.Background(), &Request{Query: "policy", OwnerID: 42}, monitor)
	require.NoError(t, err)

	assert.Equal(t, "policy", monitor.startedWith)
	assert.False(t, monitor.webAvailable)
	assert.Equal(t, 1, monitor.rankedDocs)
	assert.Same(t, result, monitor.finished)
}

type recordingMonitor struct {
	noopMonitor
	startedWith  string
	webAvailable bool
	rankedDocs   int
	finished     *Result
}

func (m *recordingMonitor) Start(query string)        { m.startedWith = query }
func (m *recordingMonitor) ProbeDone(available bool)  { m.webAvailable = available }
func (m *recordingMonitor) Finish(result *Result)     { m.finished = result }
func (m *recordingMonitor) AfterDocumentRanking(docs []*core.Document) {
	m.rankedDocs = len(docs)
}
