package rank

import (
	"log/slog"
	"math"
	"slices"

	"github.com/poiesic/weave/core"
)

const (
	defaultDocThreshold  = 0.4
	defaultFragThreshold = 0.6
	defaultMaxDocs       = 5
	defaultMaxFrags      = 5
	defaultFragsPerPage  = 3
	defaultSnippetLen    = 200
)

// Ranker scores documents and their fragment vectors against a query
// embedding and distills the winners into citable references.
type Ranker struct {
	docThreshold  float64
	fragThreshold float64
	maxDocs       int
	maxFrags      int
	fragsPerPage  int
	snippetLen    int
	logger        *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithDocThreshold sets the score a document must exceed to survive coarse
// ranking.
func WithDocThreshold(threshold float64) Option {
	return func(r *Ranker) error {
		if threshold < 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		r.docThreshold = threshold
		return nil
	}
}

// WithFragThreshold sets the minimum fragment score to survive fine ranking.
func WithFragThreshold(threshold float64) Option {
	return func(r *Ranker) error {
		if threshold < 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		r.fragThreshold = threshold
		return nil
	}
}

// WithMaxDocs sets how many documents coarse ranking keeps.
func WithMaxDocs(n int) Option {
	return func(r *Ranker) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		r.maxDocs = n
		return nil
	}
}

// WithMaxFrags sets how many page results fine ranking keeps.
func WithMaxFrags(n int) Option {
	return func(r *Ranker) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		r.maxFrags = n
		return nil
	}
}

// WithFragsPerPage sets how many fragments of one page are blended into its
// page result.
func WithFragsPerPage(n int) Option {
	return func(r *Ranker) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		r.fragsPerPage = n
		return nil
	}
}

// WithSnippetLen sets the reference excerpt length in characters.
func WithSnippetLen(n int) Option {
	return func(r *Ranker) error {
		if n <= 0 {
			return ErrInvalidLimit
		}
		r.snippetLen = n
		return nil
	}
}

// WithLogger sets the logger used for ranking events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			return ErrNilLogger
		}
		r.logger = logger
		return nil
	}
}

// NewRanker creates a Ranker with the given options.
func NewRanker(opts ...Option) (*Ranker, error) {
	r := &Ranker{
		docThreshold:  defaultDocThreshold,
		fragThreshold: defaultFragThreshold,
		maxDocs:       defaultMaxDocs,
		maxFrags:      defaultMaxFrags,
		fragsPerPage:  defaultFragsPerPage,
		snippetLen:    defaultSnippetLen,
		logger:        slog.Default().With("component", "ranker"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Cosine computes the cosine similarity of two vectors.
// Mismatched lengths and zero-magnitude vectors score 0 rather than erroring,
// so a single bad embedding never aborts a ranking pass.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type scoredDoc struct {
	doc   *core.Document
	score float64
}

// RankDocuments performs the coarse pass: each document is scored by its best
// fragment, documents under the threshold are dropped, and the best maxDocs
// survive in score order. Documents whose fragments are all malformed are
// skipped with a warning.
func (r *Ranker) RankDocuments(queryVec []float32, docs []*core.Document) []*core.Document {
	scored := make([]scoredDoc, 0, len(docs))

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		best := -1.0
		usable := 0
		for i := range doc.Fragments {
			frag := &doc.Fragments[i]
			if err := core.ValidateFragment(frag, len(queryVec)); err != nil {
				r.logger.Warn("skipping malformed fragment",
					"document", doc.Name, "page", frag.Page, "error", err)
				continue
			}
			usable++
			if s := Cosine(queryVec, frag.Vector); s > best {
				best = s
			}
		}
		if usable == 0 {
			continue
		}
		if best > r.docThreshold {
			scored = append(scored, scoredDoc{doc: doc, score: best})
		}
	}

	slices.SortStableFunc(scored, func(a, b scoredDoc) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return 0
	})

	if len(scored) > r.maxDocs {
		scored = scored[:r.maxDocs]
	}

	result := make([]*core.Document, len(scored))
	for i, s := range scored {
		result[i] = s.doc
	}
	return result
}

type scoredFrag struct {
	frag  *core.FragmentVector
	index int
	score float64
}

// RankFragments performs the fine pass over the given documents: fragments
// are scored individually, grouped by (document, page), and each page whose
// best fragment clears the threshold becomes one RankedFragment blending the
// page's top fragments in their original document order. The best maxFrags
// page results survive in score order.
func (r *Ranker) RankFragments(queryVec []float32, docs []*core.Document) []*core.RankedFragment {
	type pageKey struct {
		doc  string
		page int
	}

	pageFrags := make(map[pageKey][]scoredFrag)
	pageOrder := make([]pageKey, 0)
	docByName := make(map[string]*core.Document)

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		docByName[doc.Name] = doc
		for i := range doc.Fragments {
			frag := &doc.Fragments[i]
			if err := core.ValidateFragment(frag, len(queryVec)); err != nil {
				r.logger.Warn("skipping malformed fragment",
					"document", doc.Name, "page", frag.Page, "error", err)
				continue
			}
			key := pageKey{doc: doc.Name, page: frag.Page}
			if _, seen := pageFrags[key]; !seen {
				pageOrder = append(pageOrder, key)
			}
			pageFrags[key] = append(pageFrags[key], scoredFrag{
				frag:  frag,
				index: i,
				score: Cosine(queryVec, frag.Vector),
			})
		}
	}

	results := make([]*core.RankedFragment, 0, len(pageOrder))
	for _, key := range pageOrder {
		frags := pageFrags[key]

		best := frags[0].score
		for _, f := range frags[1:] {
			if f.score > best {
				best = f.score
			}
		}
		if best < r.fragThreshold {
			continue
		}

		// Keep the page's top fragments, then restore document order so the
		// blended text reads naturally.
		slices.SortStableFunc(frags, func(a, b scoredFrag) int {
			if a.score > b.score {
				return -1
			}
			if a.score < b.score {
				return 1
			}
			return 0
		})
		if len(frags) > r.fragsPerPage {
			frags = frags[:r.fragsPerPage]
		}
		slices.SortFunc(frags, func(a, b scoredFrag) int {
			return a.index - b.index
		})

		text := ""
		for i, f := range frags {
			if i > 0 {
				text += "\n"
			}
			text += f.frag.Text
		}

		results = append(results, &core.RankedFragment{
			DocumentName:    key.doc,
			Text:            text,
			Page:            key.page,
			Similarity:      best,
			DocumentSummary: docByName[key.doc].Summary,
		})
	}

	slices.SortStableFunc(results, func(a, b *core.RankedFragment) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})

	if len(results) > r.maxFrags {
		results = results[:r.maxFrags]
	}
	return results
}

// BuildReferences folds ranked fragments into one reference per document,
// ordered by descending best similarity. Pages are listed in ranking order
// and excerpts are truncated to the configured snippet length.
func (r *Ranker) BuildReferences(frags []*core.RankedFragment) []*core.DocumentReference {
	byName := make(map[string]*core.DocumentReference)
	order := make([]string, 0)

	for _, frag := range frags {
		ref, ok := byName[frag.DocumentName]
		if !ok {
			ref = &core.DocumentReference{
				Name:    frag.DocumentName,
				Summary: frag.DocumentSummary,
			}
			byName[frag.DocumentName] = ref
			order = append(order, frag.DocumentName)
		}

		if !slices.Contains(ref.Pages, frag.Page) {
			ref.Pages = append(ref.Pages, frag.Page)
		}
		if frag.Similarity > ref.BestSimilarity {
			ref.BestSimilarity = frag.Similarity
		}
		ref.Excerpts = append(ref.Excerpts, core.Excerpt{
			Page:    frag.Page,
			Snippet: truncate(frag.Text, r.snippetLen),
		})
	}

	result := make([]*core.DocumentReference, len(order))
	for i, name := range order {
		result[i] = byName[name]
	}

	slices.SortStableFunc(result, func(a, b *core.DocumentReference) int {
		if a.BestSimilarity > b.BestSimilarity {
			return -1
		}
		if a.BestSimilarity < b.BestSimilarity {
			return 1
		}
		return 0
	})
	return result
}

// truncate shortens s to at most n characters, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
