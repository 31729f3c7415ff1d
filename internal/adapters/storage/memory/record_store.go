package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PabloGalante/ledger/internal/domain"
)

// RecordStore is a simple in-memory implementation of domain.Store.
// It is NOT persistent and is only suitable for development / local mode.
type RecordStore struct {
	mu         sync.RWMutex
	profiles   map[domain.UserID]*domain.Profile
	principles map[domain.PrincipleID]*domain.Principle
	sessions   map[domain.CoachingSessionID]*domain.CoachingSession
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		profiles:   make(map[domain.UserID]*domain.Profile),
		principles: make(map[domain.PrincipleID]*domain.Principle),
		sessions:   make(map[domain.CoachingSessionID]*domain.CoachingSession),
	}
}

// ─────────────────────────────────────────
// ProfileStore implementation
// ─────────────────────────────────────────

func (s *RecordStore) EnsureProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[p.ID]; ok {
		cp := *existing
		return &cp, nil
	}

	cp := *p
	s.profiles[p.ID] = &cp
	out := cp
	return &out, nil
}

func (s *RecordStore) GetProfile(_ context.Context, id domain.UserID) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *RecordStore) MarkOnboardingComplete(_ context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	p.OnboardingComplete = true
	return nil
}

// ─────────────────────────────────────────
// PrincipleStore implementation
// ─────────────────────────────────────────

func (s *RecordStore) CreatePrinciple(_ context.Context, p *domain.Principle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principles[p.ID]; exists {
		return fmt.Errorf("principle %s: %w", p.ID, domain.ErrAlreadyExists)
	}
	cp := *p
	s.principles[p.ID] = &cp
	return nil
}

func (s *RecordStore) GetPrinciple(_ context.Context, owner domain.UserID, id domain.PrincipleID) (*domain.Principle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principles[id]
	if !ok || p.UserID != owner {
		return nil, fmt.Errorf("principle %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// ListPrinciplesByUser returns the newest `limit` principles for a user.
// If limit <= 0, returns all.
func (s *RecordStore) ListPrinciplesByUser(_ context.Context, owner domain.UserID, limit int) ([]*domain.Principle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Principle{}
	for _, p := range s.principles {
		if p.UserID == owner {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─────────────────────────────────────────
// CoachingSessionStore implementation
// ─────────────────────────────────────────

func (s *RecordStore) CreateCoachingSession(_ context.Context, cs *domain.CoachingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[cs.ID]; exists {
		return fmt.Errorf("coaching session %s: %w", cs.ID, domain.ErrAlreadyExists)
	}
	cp := *cs
	if cp.FollowUp == nil {
		cp.FollowUp = domain.FollowUpPending{}
	}
	s.sessions[cs.ID] = &cp
	return nil
}

func (s *RecordStore) GetCoachingSession(_ context.Context, owner domain.UserID, id domain.CoachingSessionID) (*domain.CoachingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.sessions[id]
	if !ok || cs.UserID != owner {
		return nil, fmt.Errorf("coaching session %s: %w", id, domain.ErrNotFound)
	}
	cp := *cs
	return &cp, nil
}

func (s *RecordStore) ListCoachingSessionsByUser(_ context.Context, owner domain.UserID, limit int) ([]*domain.CoachingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.CoachingSession{}
	for _, cs := range s.sessions {
		if cs.UserID == owner {
			cp := *cs
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *RecordStore) ResolveFollowUp(_ context.Context, owner domain.UserID, id domain.CoachingSessionID, r domain.FollowUpResolved) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[id]
	if !ok || cs.UserID != owner {
		return fmt.Errorf("coaching session %s: %w", id, domain.ErrNotFound)
	}
	if !cs.PendingFollowUp() {
		return fmt.Errorf("coaching session %s: %w", id, domain.ErrFollowUpResolved)
	}
	cs.FollowUp = r
	return nil
}
