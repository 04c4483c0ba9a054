// Package ingestion turns raw document text into stored, embedded documents.
//
// The Pipeline type manages the ingestion workflow:
//   - Splitting text into fragments of bounded size
//   - Generating a fragment vector for each piece
//   - Storing the assembled document with a short summary
//
// Multiple documents are processed concurrently using a worker pool.
package ingestion
