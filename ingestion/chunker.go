package ingestion

import "strings"

const (
	defaultChunkSize  = 2000
	maxSummaryLength  = 500
	summaryTruncation = "..."
)

// chunkText splits text into pieces no longer than chunkSize runes,
// preferring paragraph boundaries. Consecutive short paragraphs are
// packed into a single chunk.
func chunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		paraLen := len([]rune(para))
		if currentLen > 0 && currentLen+paraLen > chunkSize {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = nil
			currentLen = 0
		}
		current = append(current, para)
		currentLen += paraLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}
	return chunks
}

// summarize returns the leading portion of the first chunk for use as a
// document summary.
func summarize(chunk string) string {
	runes := []rune(chunk)
	if len(runes) <= maxSummaryLength {
		return chunk
	}
	return string(runes[:maxSummaryLength]) + summaryTruncation
}
