package store

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no value exists at a key.
	ErrNotFound = errors.New("no value at key")

	// ErrQuotaExceeded is returned when a collection is full.
	ErrQuotaExceeded = errors.New("collection record quota exceeded")
)

// Collection identifies one owner's partition of a resource.
type Collection struct {
	Resource string
	Owner    string
}

func (c Collection) key() string {
	return c.Resource + "/" + c.Owner
}

// Child is one stored value and its key.
type Child struct {
	Key   string
	Value json.RawMessage
}

// MemoryStore is a concurrency-safe in-memory document store partitioned by
// collection.
type MemoryStore struct {
	mu sync.RWMutex

	// key: collection key, value: children by key
	data map[string]map[string]json.RawMessage

	// maxRecords per collection, 0 = unlimited
	maxRecords int

	newKey func() (string, error)
}

// NewMemoryStore creates a new MemoryStore. If maxRecords is <= 0 it is
// treated as unlimited.
func NewMemoryStore(maxRecords int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]map[string]json.RawMessage),
		maxRecords: maxRecords,
		newKey:     pushKey,
	}
}

// pushKey returns a time-ordered key so that lexical order is creation order.
func pushKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Push stores value under a newly generated key and returns the key.
func (s *MemoryStore) Push(c Collection, value json.RawMessage) (string, error) {
	key, err := s.newKey()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	children := s.children(c)
	if s.maxRecords > 0 && len(children) >= s.maxRecords {
		return "", ErrQuotaExceeded
	}
	children[key] = clone(value)
	return key, nil
}

// Set writes value at key, replacing anything already there.
func (s *MemoryStore) Set(c Collection, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	children := s.children(c)
	if _, exists := children[key]; !exists && s.maxRecords > 0 && len(children) >= s.maxRecords {
		return ErrQuotaExceeded
	}
	children[key] = clone(value)
	return nil
}

// Get returns the value at key.
func (s *MemoryStore) Get(c Collection, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[c.key()][key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

// List returns every child of the collection ordered by key.
func (s *MemoryStore) List(c Collection) []Child {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := s.data[c.key()]
	result := make([]Child, 0, len(children))
	for k, v := range children {
		result = append(result, Child{Key: k, Value: clone(v)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Delete removes the value at key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(c Collection, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	children, ok := s.data[c.key()]
	if !ok {
		return
	}
	delete(children, key)
	if len(children) == 0 {
		delete(s.data, c.key())
	}
}

// Count returns the number of values across all collections.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, children := range s.data {
		n += len(children)
	}
	return n
}

// children must be called with the write lock held.
func (s *MemoryStore) children(c Collection) map[string]json.RawMessage {
	children, ok := s.data[c.key()]
	if !ok {
		children = make(map[string]json.RawMessage)
		s.data[c.key()] = children
	}
	return children
}

func clone(v json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
