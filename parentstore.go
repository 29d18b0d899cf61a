package docrag

import "sync"

// ParentStore is a keyed store for full-granularity parent documents.
// Implementations must be safe for concurrent use by ingestion workers and
// retrieval readers. The store owns the stored copy; callers must not mutate
// a document after saving it.
type ParentStore interface {
	// Save inserts or overwrites; last writer wins on a duplicate id.
	Save(id string, doc Document)
	// Get returns the stored document, or ok=false for an unknown id.
	// A miss is never an error: parents may have been deleted or never
	// persisted (e.g. after a restart).
	Get(id string) (Document, bool)
	// GetAll returns a snapshot of all stored documents in no stable order.
	GetAll() []Document
	// Delete removes the entry if present; no-op otherwise.
	Delete(id string)
	// Size returns the current entry count.
	Size() int
}

// MemoryParentStore is an in-memory ParentStore. There is no eviction or
// TTL: entries live until deleted or the process exits. Substitute a
// persistent ParentStore implementation if that tradeoff does not fit.
type MemoryParentStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

var _ ParentStore = (*MemoryParentStore)(nil)

// NewMemoryParentStore creates an empty in-memory parent store.
func NewMemoryParentStore() *MemoryParentStore {
	return &MemoryParentStore{docs: make(map[string]Document)}
}

func (s *MemoryParentStore) Save(id string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = doc
}

func (s *MemoryParentStore) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

func (s *MemoryParentStore) GetAll() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	return out
}

func (s *MemoryParentStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

func (s *MemoryParentStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
