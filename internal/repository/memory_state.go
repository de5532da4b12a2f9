package repository

import (
	"context"
	"sync"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
)

// MemStateStore holds the latest snapshot in memory, used when persistence
// is disabled. State is lost on restart, which is the point of that mode.
type MemStateStore struct {
	mu sync.Mutex
	st *models.SimState
}

// NewMemStateStore creates an in-memory state store.
func NewMemStateStore() *MemStateStore {
	return &MemStateStore{}
}

func (s *MemStateStore) Load(ctx context.Context) (*models.SimState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil {
		return nil, nil
	}
	cp := *s.st
	return &cp, nil
}

func (s *MemStateStore) Save(ctx context.Context, st *models.SimState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == nil {
		return nil
	}
	cp := *st
	s.st = &cp
	return nil
}

var _ domrepo.StateStore = (*MemStateStore)(nil)
