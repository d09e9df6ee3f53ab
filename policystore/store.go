package policystore

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// Store reads and writes user policy records.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: GetUser returns ErrNotFound for a missing record.
// - Backend failures wrap ErrUnavailable.
type Store interface {
	GetUser(ctx context.Context, email string) (*UserPolicyRecord, error)
	PutUser(ctx context.Context, rec *UserPolicyRecord) error
	DeleteUser(ctx context.Context, email string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*UserPolicyRecord, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*UserPolicyRecord
}

// NewMemoryStore creates a store seeded with recs. Invalid records are
// rejected.
func NewMemoryStore(recs ...*UserPolicyRecord) (*MemoryStore, error) {
	s := &MemoryStore{records: make(map[string]*UserPolicyRecord)}
	for _, r := range recs {
		if err := s.PutUser(context.Background(), r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func clone(r *UserPolicyRecord) *UserPolicyRecord {
	c := *r
	c.Groups = slices.Clone(r.Groups)
	c.AllowedTools = slices.Clone(r.AllowedTools)
	c.AllowedAgents = slices.Clone(r.AllowedAgents)
	return &c
}

func (s *MemoryStore) GetUser(_ context.Context, email string) (*UserPolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (s *MemoryStore) PutUser(_ context.Context, rec *UserPolicyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	c := clone(rec)
	c.Email = NormalizeEmail(c.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[c.Email] = c
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, NormalizeEmail(email))
	return nil
}

func (s *MemoryStore) ListByTenant(_ context.Context, tenantID string) ([]*UserPolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*UserPolicyRecord
	for _, r := range s.records {
		if r.TenantID == tenantID {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }
