package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ledger used in development and tests.
// The (path, network) key is unique, mirroring the postgres index.
type MemoryStore struct {
	mu           sync.RWMutex
	endpoints    map[[2]string]EndpointRecord
	transactions []TransactionRecord
}

var (
	_ EndpointStore    = (*MemoryStore)(nil)
	_ TransactionStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		endpoints: make(map[[2]string]EndpointRecord),
	}
}

// SeedEndpoint registers an endpoint, replacing any previous record for
// the same (path, network).
func (s *MemoryStore) SeedEndpoint(e EndpointRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[[2]string{e.Path, e.Network}] = e
}

func (s *MemoryStore) FindByPathAndNetwork(_ context.Context, path, network string) (*EndpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.endpoints[[2]string{path, network}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) Insert(_ context.Context, record *TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, *record)
	return nil
}

// Transactions returns a copy of the appended records.
func (s *MemoryStore) Transactions() []TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TransactionRecord, len(s.transactions))
	copy(out, s.transactions)
	return out
}
