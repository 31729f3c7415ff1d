package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/ledger/internal/domain"
)

// FlowStore keeps live onboarding or coaching flows in process memory.
type FlowStore[S any] struct {
	mu    sync.RWMutex
	flows map[domain.FlowID]*domain.Flow[S]
	busy  map[domain.FlowID]bool
}

func NewFlowStore[S any]() *FlowStore[S] {
	return &FlowStore[S]{
		flows: make(map[domain.FlowID]*domain.Flow[S]),
		busy:  make(map[domain.FlowID]bool),
	}
}

func (s *FlowStore[S]) CreateFlow(_ context.Context, f *domain.Flow[S]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.flows[f.ID]; exists {
		return fmt.Errorf("flow %s: %w", f.ID, domain.ErrAlreadyExists)
	}

	cp := *f
	s.flows[f.ID] = &cp
	return nil
}

func (s *FlowStore[S]) GetFlow(_ context.Context, owner domain.UserID, id domain.FlowID) (*domain.Flow[S], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flows[id]
	if !ok || f.Owner != owner {
		return nil, fmt.Errorf("flow %s: %w", id, domain.ErrNotFound)
	}

	cp := *f
	return &cp, nil
}

func (s *FlowStore[S]) UpdateFlow(_ context.Context, owner domain.UserID, id domain.FlowID, state S, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[id]
	if !ok || f.Owner != owner {
		return fmt.Errorf("flow %s: %w", id, domain.ErrNotFound)
	}

	f.State = state
	f.UpdatedAt = at
	return nil
}

func (s *FlowStore[S]) AcquireFlow(_ context.Context, owner domain.UserID, id domain.FlowID) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[id]
	if !ok || f.Owner != owner {
		return nil, fmt.Errorf("flow %s: %w", id, domain.ErrNotFound)
	}
	if s.busy[id] {
		return nil, fmt.Errorf("flow %s: %w", id, domain.ErrBusy)
	}
	s.busy[id] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.busy, id)
			s.mu.Unlock()
		})
	}, nil
}

// Sweep drops idle flows last updated before cutoff and returns how many
// were removed. Busy flows are kept.
func (s *FlowStore[S]) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, f := range s.flows {
		if s.busy[id] || !f.UpdatedAt.Before(cutoff) {
			continue
		}
		delete(s.flows, id)
		removed++
	}
	return removed
}
