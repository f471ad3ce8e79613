package assistant

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache is an in-memory memo table. Entries are only ever inserted after a
// successful computation and are never mutated.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores v under key unless an entry already exists, and returns the stored value.
func (c *Cache[K, V]) Put(key K, v V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = v
	return v
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]V)
}

// AnswerKey identifies an answer record by transcript content and exact question text.
type AnswerKey struct {
	TranscriptHash string
	Question       string
}

func NewAnswerKey(transcript, question string) AnswerKey {
	return AnswerKey{TranscriptHash: ContentHash([]byte(transcript)), Question: question}
}

// ContentHash returns the hex SHA-256 of b.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
