package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// String renders the ID in decimal.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentID generates the deterministic ID for a document. Document names
// are unique per owner, so the (owner, name) pair fully identifies one.
func DocumentID(ownerID int64, name string) ID {
	return IDFromContent("(" + strconv.FormatInt(ownerID, 10) + "," + name + ")")
}

// SpeakerType identifies the source of a chat turn.
type SpeakerType int

const (
	// SpeakerTypeHuman represents a human user.
	SpeakerTypeHuman SpeakerType = iota + 1
	// SpeakerTypeAI represents an AI assistant.
	SpeakerTypeAI
)

// FragmentVector is one embedded chunk of document text, paired with the page
// it was extracted from. Fragments are produced at ingestion time and never
// modified afterwards.
type FragmentVector struct {
	Vector []float32
	Text   string
	Page   int
}

// Document is a user-owned document with its precomputed fragment vectors.
type Document struct {
	Name       string
	OwnerID    int64
	Fragments  []FragmentVector
	Summary    string
	InsertedAt time.Time // When the document was stored
	UpdatedAt  time.Time // When the document was last updated
}

// ID returns the document's deterministic identifier.
func (d *Document) ID() ID {
	return DocumentID(d.OwnerID, d.Name)
}

// RankedFragment is a per-query scoring result for one document page.
// Text holds the concatenated top fragments of the page and Similarity the
// page's best fragment score. Transient, discarded after response assembly.
type RankedFragment struct {
	DocumentName    string
	Text            string
	Page            int
	Similarity      float64
	DocumentSummary string
}

// Excerpt is a short quoted passage from a document page.
type Excerpt struct {
	Page    int
	Snippet string
}

// DocumentReference aggregates the ranked fragments of one document into a
// citable reference: which pages matched, how well, and what was quoted.
type DocumentReference struct {
	Name           string
	Pages          []int
	BestSimilarity float64
	Excerpts       []Excerpt
	Summary        string
}

// WebSource is one web search hit, optionally enriched with scraped page
// text. Web sources are never persisted.
type WebSource struct {
	URL         string
	Title       string
	Snippet     string
	ScrapedText string
}

// Media groups the visual results of a web search.
type Media struct {
	Images []string // Image URLs
	Videos []string // Video identifiers
}

// ChatTurn is a single message in a conversation's history.
type ChatTurn struct {
	Speaker   SpeakerType
	Contents  string
	Timestamp time.Time
}
