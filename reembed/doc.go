// Package reembed provides functionality for reembedding stored document
// fragments with new or updated embedding models.
//
// This package supports batch processing of fragments, progress tracking,
// retry logic with exponential backoff, and vector normalization to ensure
// compatibility with cosine similarity search.
package reembed
