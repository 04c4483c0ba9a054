package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/cache"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/rank"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/webfetch"
	"github.com/poiesic/weave/websearch"
)

const (
	defaultProbeTimeout = 3 * time.Second
	defaultFetchTimeout = 5 * time.Second
	defaultPoolSize     = 8

	maxLinks  = 5
	maxImages = 5
	maxVideos = 3
)

// webMode is the per-query decision on whether web branches run.
// It is decided once, from the availability probe, and never revisited.
type webMode int

const (
	webDisabled webMode = iota
	webEnabled
)

// Request identifies one incoming query.
type Request struct {
	Query   string
	OwnerID int64
	ChatID  string
}

// Result is the assembled context for one query. Context carries document
// excerpts followed by an online-sources section when the web was reachable;
// References, Media and Sources describe where the material came from.
type Result struct {
	Context        string
	References     []*core.DocumentReference
	Media          core.Media
	RelatedQueries []string
	ChatName       string
	Sources        []*core.WebSource
}

// Orchestrator gathers context for a query from stored documents and the
// web, running independent branches concurrently. A failure in any single
// branch degrades that branch to an empty result; only malformed input
// fails a query.
type Orchestrator struct {
	docs      storage.DocumentRepository
	embedder  ai.Embedder
	generator ai.Generator
	search    websearch.Provider
	fetcher   *webfetch.Fetcher
	inference *cache.Cache[string]
	ranker    *rank.Ranker
	pool      *ants.Pool

	probeTimeout time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithInferenceCache routes chat-name and related-query generation through
// the given cache. Without it every query pays for fresh inference calls.
func WithInferenceCache(c *cache.Cache[string]) Option {
	return func(o *Orchestrator) error {
		o.inference = c
		return nil
	}
}

// WithRanker replaces the default similarity ranker.
func WithRanker(r *rank.Ranker) Option {
	return func(o *Orchestrator) error {
		if r != nil {
			o.ranker = r
		}
		return nil
	}
}

// WithProbeTimeout bounds the search-provider availability probe.
// Default is 3 seconds.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d > 0 {
			o.probeTimeout = d
		}
		return nil
	}
}

// WithFetchTimeout bounds the whole page-fetch stage of a query.
// Default is 5 seconds.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d > 0 {
			o.fetchTimeout = d
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(
	docs storage.DocumentRepository,
	provider ai.AIProvider,
	search websearch.Provider,
	fetcher *webfetch.Fetcher,
	opts ...Option,
) (*Orchestrator, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if search == nil {
		return nil, ErrSearchProviderRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	ranker, err := rank.NewRanker()
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		docs:         docs,
		embedder:     provider.Embedder(),
		generator:    provider.Generator(),
		search:       search,
		fetcher:      fetcher,
		ranker:       ranker,
		probeTimeout: defaultProbeTimeout,
		fetchTimeout: defaultFetchTimeout,
		logger:       slog.Default().With("component", "retrieve"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(defaultPoolSize)
	if err != nil {
		return nil, err
	}
	o.pool = pool

	return o, nil
}

// Close releases the orchestrator's worker pool.
func (o *Orchestrator) Close() {
	o.pool.Release()
}

// RetrieveContext assembles query context from owned documents and, when
// the search provider is reachable, the open web.
func (o *Orchestrator) RetrieveContext(ctx context.Context, req *Request) (*Result, error) {
	return o.RetrieveContextWithMonitor(ctx, req, nil)
}

// RetrieveContextWithMonitor assembles query context with monitoring.
// The monitor receives callbacks as each branch of the query completes.
// Every dispatched branch is joined before this returns; a failed branch
// contributes an empty result instead of failing the query.
func (o *Orchestrator) RetrieveContextWithMonitor(ctx context.Context, req *Request, monitor Monitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if req.OwnerID == 0 {
		return nil, ErrOwnerRequired
	}

	monitor.Start(req.Query)
	query := strings.TrimSpace(req.Query)

	var (
		chatName   string
		related    []string
		docContext string
		references []*core.DocumentReference
	)

	join := o.spawnGroup()
	join.spawn(func() { chatName = o.chatName(ctx, query) })
	join.spawn(func() { related = o.relatedQueries(ctx, query) })
	join.spawn(func() { docContext, references = o.documentContext(ctx, query, req.OwnerID, monitor) })

	// The probe runs on this goroutine, concurrent with the branches above.
	mode := o.probe(ctx)
	monitor.ProbeDone(mode == webEnabled)

	var (
		sources    []*core.WebSource
		images     []string
		videos     []string
		webContext string
	)
	if mode == webEnabled {
		searches := o.spawnGroup()
		searches.spawn(func() { sources = o.search.SearchLinks(ctx, query, maxLinks) })
		searches.spawn(func() { images = o.search.SearchImages(ctx, query, maxImages) })
		searches.spawn(func() { videos = o.search.SearchVideos(ctx, query, maxVideos) })
		searches.wait()

		monitor.AfterLinkSearch(sources)
		monitor.AfterMediaSearch(images, videos)

		webContext = o.webContext(ctx, sources)
		monitor.AfterFetch(webContext)
	}

	join.wait()

	merged := docContext
	if webContext != "" {
		if merged != "" {
			merged += "\n\n"
		}
		merged += "Online Sources:\n\n" + webContext
	}

	result := &Result{
		Context:        merged,
		References:     references,
		Media:          core.Media{Images: emptyNotNil(images), Videos: emptyNotNil(videos)},
		RelatedQueries: related,
		ChatName:       chatName,
		Sources:        sources,
	}
	monitor.Finish(result)
	return result, nil
}

// group joins a set of branches dispatched onto the shared pool.
type group struct {
	o  *Orchestrator
	wg sync.WaitGroup
}

func (o *Orchestrator) spawnGroup() *group {
	return &group{o: o}
}

func (g *group) spawn(fn func()) {
	g.wg.Add(1)
	task := func() {
		defer g.wg.Done()
		fn()
	}
	if err := g.o.pool.Submit(task); err != nil {
		// Pool saturated or released; do the work on this goroutine.
		task()
	}
}

func (g *group) wait() {
	g.wg.Wait()
}

// probe decides the query's web mode. Any probe failure, including the
// timeout, means the web branches are skipped for this query.
func (o *Orchestrator) probe(ctx context.Context) webMode {
	probeCtx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()

	if o.search.Probe(probeCtx) {
		return webEnabled
	}
	o.logger.Debug("search provider unavailable, skipping web branches")
	return webDisabled
}

// documentContext ranks the owner's documents against the query and builds
// the excerpt block plus references. Any failure yields empty context.
func (o *Orchestrator) documentContext(ctx context.Context, query string, ownerID int64, monitor Monitor) (string, []*core.DocumentReference) {
	vec, err := o.embedder.EmbedText(ctx, query)
	if err != nil {
		o.logger.Error("error embedding query", "err", err)
		return "", nil
	}

	docs, err := o.docs.ListDocuments(ctx, ownerID)
	if err != nil {
		o.logger.Error("error listing documents", "ownerID", ownerID, "err", err)
		return "", nil
	}

	ranked := o.ranker.RankDocuments(vec, docs)
	monitor.AfterDocumentRanking(ranked)
	if len(ranked) == 0 {
		return "", nil
	}

	fragments := o.ranker.RankFragments(vec, ranked)
	monitor.AfterFragmentRanking(fragments)
	if len(fragments) == 0 {
		return "", nil
	}

	blocks := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		blocks = append(blocks, fmt.Sprintf("[%s Page %d] %s", frag.DocumentName, frag.Page, frag.Text))
	}

	return strings.Join(blocks, "\n\n"), o.ranker.BuildReferences(fragments)
}

// webContext fetches the searched pages under the fetch-stage budget.
// If the stage deadline passes before every fetch lands, the whole web
// context is dropped rather than merged partially.
func (o *Orchestrator) webContext(ctx context.Context, sources []*core.WebSource) string {
	if len(sources) == 0 {
		return ""
	}

	urls := make([]string, 0, len(sources))
	for _, src := range sources {
		if src != nil && src.URL != "" {
			urls = append(urls, src.URL)
		}
	}
	if len(urls) == 0 {
		return ""
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- o.fetcher.FetchMany(stageCtx, urls)
	}()

	select {
	case text := <-done:
		return text
	case <-stageCtx.Done():
		o.logger.Warn("fetch stage exceeded its budget, discarding web context", "urls", len(urls))
		return ""
	}
}

// chatName labels the interaction. Generation failures fall back to the
// first few words of the query.
func (o *Orchestrator) chatName(ctx context.Context, query string) string {
	response, err := o.cachedGenerate(ctx, chatNamePrompt, query, false)
	if err != nil {
		o.logger.Warn("error generating chat name", "err", err)
		words := strings.Fields(query)
		if len(words) > 4 {
			words = words[:4]
		}
		return titleCase(strings.Join(words, " "))
	}

	name := strings.TrimSpace(response)
	name = strings.Trim(name, `"'`)
	return titleCase(name)
}

// relatedQueries produces exactly five follow-up questions, topping up
// from templates when the model returns fewer.
func (o *Orchestrator) relatedQueries(ctx context.Context, query string) []string {
	queries := make([]string, 0, 5)

	response, err := o.cachedGenerate(ctx, relatedQueriesPrompt, query, true)
	if err != nil {
		o.logger.Warn("error generating related queries", "err", err)
	} else {
		var parsed struct {
			RelevantQueries []string `json:"relevant_queries"`
		}
		if err := extractJSON(response, &parsed); err != nil {
			o.logger.Warn("error parsing related queries response", "response", response, "err", err)
		} else {
			for _, q := range parsed.RelevantQueries {
				if q = strings.TrimSpace(q); q != "" {
					queries = append(queries, q)
				}
			}
		}
	}

	for _, tmpl := range relatedQueryTemplates {
		if len(queries) >= 5 {
			break
		}
		queries = append(queries, fmt.Sprintf(tmpl, query))
	}
	return queries[:5]
}

// cachedGenerate runs a generation through the inference cache when one is
// configured. The key covers the full semantic identity of the call.
func (o *Orchestrator) cachedGenerate(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	generate := func(ctx context.Context) (string, error) {
		if jsonMode {
			return o.generator.GenerateJSON(ctx, systemPrompt, userPrompt)
		}
		return o.generator.Generate(ctx, systemPrompt, userPrompt)
	}

	if o.inference == nil {
		return generate(ctx)
	}
	key := cache.Key(systemPrompt, userPrompt, o.generator.Model())
	return o.inference.GetOrCompute(ctx, key, generate)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
