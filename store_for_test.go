package devguide

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/couchbase/gocb/v2"
)

// MemoryStore is an in-memory DocumentStore that follows the collection's
// CAS and existence rules. It exists so that the retry helpers and their
// runnable examples work without a cluster.
type MemoryStore struct {
	mu      sync.Mutex
	docs    map[string]memoryDoc
	lastCas gocb.Cas

	// BeforeReplace, when set, runs at the start of every Replace call with
	// the number of Replace calls made so far (starting at 1). It runs
	// without the lock held, so it may call back into the store to simulate
	// a concurrent writer.
	BeforeReplace func(s *MemoryStore, id string, call int)

	// InsertErrors are returned, in order, by the next Insert calls instead
	// of performing them.
	InsertErrors []error

	replaceCalls int
}

type memoryDoc struct {
	body []byte
	cas  gocb.Cas
}

var _ DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]memoryDoc{}}
}

// Upsert stores value as id regardless of what is there.
func (s *MemoryStore) Upsert(id string, value any) (gocb.Cas, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", gocb.ErrEncodingFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(id, body), nil
}

func (s *MemoryStore) storeLocked(id string, body []byte) gocb.Cas {
	s.lastCas++
	s.docs[id] = memoryDoc{body: body, cas: s.lastCas}
	return s.lastCas
}

func (s *MemoryStore) Get(id string, valuePtr any) (gocb.Cas, error) {
	s.mu.Lock()
	doc, ok := s.docs[id]
	s.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("get %s: %w", id, gocb.ErrDocumentNotFound)
	}
	if err := json.Unmarshal(doc.body, valuePtr); err != nil {
		return 0, fmt.Errorf("%w: %w", gocb.ErrDecodingFailure, err)
	}
	return doc.cas, nil
}

func (s *MemoryStore) Insert(id string, value any, _ gocb.DurabilityLevel) (gocb.Cas, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", gocb.ErrEncodingFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.InsertErrors) > 0 {
		injected := s.InsertErrors[0]
		s.InsertErrors = s.InsertErrors[1:]
		if injected != nil {
			return 0, injected
		}
	}

	if _, ok := s.docs[id]; ok {
		return 0, fmt.Errorf("insert %s: %w", id, gocb.ErrDocumentExists)
	}
	return s.storeLocked(id, body), nil
}

func (s *MemoryStore) Replace(id string, value any, cas gocb.Cas) (gocb.Cas, error) {
	s.mu.Lock()
	s.replaceCalls++
	call := s.replaceCalls
	hook := s.BeforeReplace
	s.mu.Unlock()

	if hook != nil {
		hook(s, id, call)
	}

	body, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", gocb.ErrEncodingFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return 0, fmt.Errorf("replace %s: %w", id, gocb.ErrDocumentNotFound)
	}
	if cas != 0 && cas != doc.cas {
		return 0, fmt.Errorf("replace %s: %w", id, gocb.ErrCasMismatch)
	}
	return s.storeLocked(id, body), nil
}

// ReplaceCalls returns how many times Replace has been called.
func (s *MemoryStore) ReplaceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceCalls
}
