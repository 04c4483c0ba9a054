package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	docRecordPrefix   = "docrec"
	histTurnPrefix    = "histrn"
	histTurnSeq       = "histrnseq"
	cacheRecordPrefix = "cacrec"
)

// makeDocumentKey generates a key for a document by owner and name.
// Format: prefix:owner:name
// The owner is written in BigEndian so all of one owner's documents share a
// byte prefix and iterate in name order.
func makeDocumentKey(ownerID int64, name string) []byte {
	prefix := makeOwnerPrefix(ownerID)
	buf := make([]byte, len(prefix)+len(name))
	offset := copy(buf, prefix)
	copy(buf[offset:], name)
	return buf
}

// makeOwnerPrefix generates the key prefix shared by one owner's documents.
// Format: prefix:owner:
func makeOwnerPrefix(ownerID int64) []byte {
	prefix := docRecordPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 + 1
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ownerID))
	offset += 8
	buf[offset] = ':'
	return buf
}

// makeHistoryKey generates a composite key for one chat turn.
// Format: prefix:chatID:timestamp:seq
// Timestamp and sequence are BigEndian so lexicographic order is time order,
// with the sequence breaking ties between turns sharing a microsecond.
func makeHistoryKey(chatID string, timestamp time.Time, seq uint64) []byte {
	prefix := histTurnPrefix + ":" + chatID + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for seq
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeHistoryPrefix generates the key prefix shared by one chat's turns.
func makeHistoryPrefix(chatID string) []byte {
	return []byte(histTurnPrefix + ":" + chatID + ":")
}

// MakeCacheKey generates a key for a cache entry within a named cache.
// Format: prefix:cache:key
func MakeCacheKey(cacheName, key string) []byte {
	return []byte(cacheRecordPrefix + ":" + cacheName + ":" + key)
}

// MakeCachePrefix generates the key prefix shared by one cache's entries.
func MakeCachePrefix(cacheName string) []byte {
	return []byte(cacheRecordPrefix + ":" + cacheName + ":")
}
