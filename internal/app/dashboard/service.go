package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

const (
	// MaxPendingFollowUps caps the follow-up prompts shown at once.
	MaxPendingFollowUps = 2
	// RecentSessions caps the coaching history shown on the dashboard.
	// Older sessions still count toward pending follow-ups.
	RecentSessions = 5
)

// Service holds the read side of a user's ledger and the follow-up check-in.
type Service struct {
	store domain.Store
	now   func() time.Time
}

// NewService creates a dashboard service from a Store.
func NewService(store domain.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// WithClock returns a copy of s that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// Dashboard is everything the landing page shows.
type Dashboard struct {
	Profile          *domain.Profile
	Principles       []*domain.Principle
	Sessions         []*domain.CoachingSession
	PendingFollowUps []*domain.CoachingSession
	NeedsOnboarding  bool
}

// GetDashboard ensures the caller has a profile and returns their principles
// and the RecentSessions most recent coaching sessions, newest first.
func (s *Service) GetDashboard(ctx context.Context, who domain.Identity) (*Dashboard, error) {
	log := observability.LoggerFromContext(ctx)

	profile, err := s.store.EnsureProfile(ctx, &domain.Profile{
		ID:          who.UserID,
		DisplayName: who.DisplayName,
		CreatedAt:   s.now(),
	})
	if err != nil {
		log.Error("failed to ensure profile", zap.Error(err))
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	principles, err := s.store.ListPrinciplesByUser(ctx, who.UserID, 0)
	if err != nil {
		log.Error("failed to list principles", zap.Error(err))
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	sessions, err := s.store.ListCoachingSessionsByUser(ctx, who.UserID, 0)
	if err != nil {
		log.Error("failed to list coaching sessions", zap.Error(err))
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	d := &Dashboard{
		Profile:          profile,
		Principles:       principles,
		Sessions:         recent(sessions),
		PendingFollowUps: pendingFollowUps(sessions),
		NeedsOnboarding:  !profile.OnboardingComplete && len(principles) == 0,
	}

	log.Info("dashboard loaded",
		zap.Int("principles", len(principles)),
		zap.Int("sessions", len(sessions)),
		zap.Int("pending_follow_ups", len(d.PendingFollowUps)),
	)
	return d, nil
}

func recent(sessions []*domain.CoachingSession) []*domain.CoachingSession {
	if len(sessions) > RecentSessions {
		return sessions[:RecentSessions]
	}
	return sessions
}

// pendingFollowUps keeps sessions that still await a check-in and have a
// commitment to check in on. sessions must be newest first.
func pendingFollowUps(sessions []*domain.CoachingSession) []*domain.CoachingSession {
	out := []*domain.CoachingSession{}
	for _, cs := range sessions {
		if !cs.PendingFollowUp() || strings.TrimSpace(cs.Commitment) == "" {
			continue
		}
		out = append(out, cs)
		if len(out) == MaxPendingFollowUps {
			break
		}
	}
	return out
}

// ListPrinciples returns the caller's principles, newest first.
func (s *Service) ListPrinciples(ctx context.Context, owner domain.UserID) ([]*domain.Principle, error) {
	return s.store.ListPrinciplesByUser(ctx, owner, 0)
}

// RecordFollowUp resolves the check-in for a coaching session. Only the first
// answer is kept; later ones fail with ErrFollowUpResolved.
func (s *Service) RecordFollowUp(ctx context.Context, owner domain.UserID, id domain.CoachingSessionID, status, note string) (*domain.CoachingSession, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("coaching_session_id", string(id)))

	outcome, ok := domain.ParseFollowUpStatus(strings.ToLower(strings.TrimSpace(status)))
	if !ok {
		return nil, fmt.Errorf("follow-up %q: %w", status, domain.ErrInvalidFollowUp)
	}

	err := s.store.ResolveFollowUp(ctx, owner, id, domain.FollowUpResolved{
		Outcome: outcome,
		Note:    strings.TrimSpace(note),
		At:      s.now(),
	})
	if err != nil {
		log.Warn("follow-up not recorded", zap.Error(err))
		return nil, err
	}

	log.Info("follow-up recorded", zap.String("outcome", string(outcome)))
	return s.store.GetCoachingSession(ctx, owner, id)
}
