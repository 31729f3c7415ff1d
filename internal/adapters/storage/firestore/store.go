package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/ledger/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (LEDGER_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) profilesCol() *firestore.CollectionRef {
	return s.client.Collection("profiles")
}

func (s *Store) principlesCol() *firestore.CollectionRef {
	return s.client.Collection("principles")
}

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("coaching_sessions")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type profileDoc struct {
	DisplayName        string    `firestore:"display_name"`
	OnboardingComplete bool      `firestore:"onboarding_complete"`
	CreatedAt          time.Time `firestore:"created_at"`
}

type principleDoc struct {
	UserID        string    `firestore:"user_id"`
	Text          string    `firestore:"principle_text"`
	SourceRegret  string    `firestore:"source_regret"`
	BetterVersion string    `firestore:"better_version"`
	CreatedAt     time.Time `firestore:"created_at"`
}

type coachingSessionDoc struct {
	UserID         string     `firestore:"user_id"`
	PrincipleID    *string    `firestore:"principle_id"`
	Situation      string     `firestore:"situation"`
	WedgeLabel     string     `firestore:"wedge_label"`
	FrameworkUsed  string     `firestore:"framework_used"`
	CoachingScript string     `firestore:"coaching_script"`
	Commitment     string     `firestore:"commitment"`
	Feedback       int        `firestore:"feedback"`
	FollowUpStatus string     `firestore:"follow_up_status"`
	FollowUpNote   *string    `firestore:"follow_up_note"`
	FollowedUpAt   *time.Time `firestore:"followed_up_at"`
	CreatedAt      time.Time  `firestore:"created_at"`
}

func toCoachingSessionDoc(cs *domain.CoachingSession) coachingSessionDoc {
	doc := coachingSessionDoc{
		UserID:         string(cs.UserID),
		Situation:      cs.Situation,
		WedgeLabel:     string(cs.WedgeLabel),
		FrameworkUsed:  string(cs.FrameworkUsed),
		CoachingScript: cs.CoachingScript,
		Commitment:     cs.Commitment,
		Feedback:       int(cs.Feedback),
		FollowUpStatus: string(domain.FollowUpPendingStatus),
		CreatedAt:      cs.CreatedAt,
	}
	if cs.PrincipleID != nil {
		v := string(*cs.PrincipleID)
		doc.PrincipleID = &v
	}
	if r, ok := cs.FollowUp.(domain.FollowUpResolved); ok {
		doc.FollowUpStatus = string(r.Outcome)
		if r.Note != "" {
			doc.FollowUpNote = &r.Note
		}
		at := r.At
		doc.FollowedUpAt = &at
	}
	return doc
}

func (d coachingSessionDoc) toDomain(id string) *domain.CoachingSession {
	cs := &domain.CoachingSession{
		ID:             domain.CoachingSessionID(id),
		UserID:         domain.UserID(d.UserID),
		Situation:      d.Situation,
		WedgeLabel:     domain.WedgeLabel(d.WedgeLabel),
		FrameworkUsed:  domain.FrameworkID(d.FrameworkUsed),
		CoachingScript: d.CoachingScript,
		Commitment:     d.Commitment,
		Feedback:       domain.Feedback(d.Feedback),
		FollowUp:       domain.FollowUpPending{},
		CreatedAt:      d.CreatedAt,
	}
	if d.PrincipleID != nil {
		pid := domain.PrincipleID(*d.PrincipleID)
		cs.PrincipleID = &pid
	}
	if domain.FollowUpStatus(d.FollowUpStatus) != domain.FollowUpPendingStatus {
		r := domain.FollowUpResolved{Outcome: domain.FollowUpStatus(d.FollowUpStatus)}
		if d.FollowUpNote != nil {
			r.Note = *d.FollowUpNote
		}
		if d.FollowedUpAt != nil {
			r.At = *d.FollowedUpAt
		}
		cs.FollowUp = r
	}
	return cs
}

// ─────────────────────────────────────────
// ProfileStore implementation
// ─────────────────────────────────────────

func (s *Store) EnsureProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	doc := profileDoc{
		DisplayName:        p.DisplayName,
		OnboardingComplete: p.OnboardingComplete,
		CreatedAt:          p.CreatedAt,
	}

	_, err := s.profilesCol().Doc(string(p.ID)).Create(ctx, doc)
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, fmt.Errorf("firestore EnsureProfile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

func (s *Store) GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	snap, err := s.profilesCol().Doc(string(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetProfile: %w", err)
	}

	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetProfile decode: %w", err)
	}

	return &domain.Profile{
		ID:                 id,
		DisplayName:        doc.DisplayName,
		OnboardingComplete: doc.OnboardingComplete,
		CreatedAt:          doc.CreatedAt,
	}, nil
}

func (s *Store) MarkOnboardingComplete(ctx context.Context, id domain.UserID) error {
	_, err := s.profilesCol().Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "onboarding_complete", Value: true},
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("firestore MarkOnboardingComplete: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// PrincipleStore implementation
// ─────────────────────────────────────────

func (s *Store) CreatePrinciple(ctx context.Context, p *domain.Principle) error {
	doc := principleDoc{
		UserID:        string(p.UserID),
		Text:          p.Text,
		SourceRegret:  p.SourceRegret,
		BetterVersion: p.BetterVersion,
		CreatedAt:     p.CreatedAt,
	}

	_, err := s.principlesCol().Doc(string(p.ID)).Create(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore CreatePrinciple: %w", err)
	}
	return nil
}

func (s *Store) GetPrinciple(ctx context.Context, owner domain.UserID, id domain.PrincipleID) (*domain.Principle, error) {
	snap, err := s.principlesCol().Doc(string(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("principle %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetPrinciple: %w", err)
	}

	var doc principleDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetPrinciple decode: %w", err)
	}
	if domain.UserID(doc.UserID) != owner {
		return nil, fmt.Errorf("principle %s: %w", id, domain.ErrNotFound)
	}

	return &domain.Principle{
		ID:            id,
		UserID:        owner,
		Text:          doc.Text,
		SourceRegret:  doc.SourceRegret,
		BetterVersion: doc.BetterVersion,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

func (s *Store) ListPrinciplesByUser(ctx context.Context, owner domain.UserID, limit int) ([]*domain.Principle, error) {
	q := s.principlesCol().Where("user_id", "==", string(owner)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []*domain.Principle{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListPrinciplesByUser: %w", err)
		}

		var doc principleDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode principleDoc: %w", err)
		}

		out = append(out, &domain.Principle{
			ID:            domain.PrincipleID(snap.Ref.ID),
			UserID:        domain.UserID(doc.UserID),
			Text:          doc.Text,
			SourceRegret:  doc.SourceRegret,
			BetterVersion: doc.BetterVersion,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return out, nil
}

// ─────────────────────────────────────────
// CoachingSessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateCoachingSession(ctx context.Context, cs *domain.CoachingSession) error {
	_, err := s.sessionsCol().Doc(string(cs.ID)).Create(ctx, toCoachingSessionDoc(cs))
	if err != nil {
		return fmt.Errorf("firestore CreateCoachingSession: %w", err)
	}
	return nil
}

func (s *Store) GetCoachingSession(ctx context.Context, owner domain.UserID, id domain.CoachingSessionID) (*domain.CoachingSession, error) {
	snap, err := s.sessionsCol().Doc(string(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("coaching session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetCoachingSession: %w", err)
	}

	var doc coachingSessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetCoachingSession decode: %w", err)
	}
	if domain.UserID(doc.UserID) != owner {
		return nil, fmt.Errorf("coaching session %s: %w", id, domain.ErrNotFound)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (s *Store) ListCoachingSessionsByUser(ctx context.Context, owner domain.UserID, limit int) ([]*domain.CoachingSession, error) {
	q := s.sessionsCol().Where("user_id", "==", string(owner)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []*domain.CoachingSession{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListCoachingSessionsByUser: %w", err)
		}

		var doc coachingSessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode coachingSessionDoc: %w", err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	return out, nil
}

// ResolveFollowUp runs in a transaction so concurrent check-ins cannot both
// see the session as pending.
func (s *Store) ResolveFollowUp(ctx context.Context, owner domain.UserID, id domain.CoachingSessionID, r domain.FollowUpResolved) error {
	ref := s.sessionsCol().Doc(string(id))

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("coaching session %s: %w", id, domain.ErrNotFound)
			}
			return fmt.Errorf("firestore ResolveFollowUp: %w", err)
		}

		var doc coachingSessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore ResolveFollowUp decode: %w", err)
		}
		if domain.UserID(doc.UserID) != owner {
			return fmt.Errorf("coaching session %s: %w", id, domain.ErrNotFound)
		}
		if domain.FollowUpStatus(doc.FollowUpStatus) != domain.FollowUpPendingStatus {
			return fmt.Errorf("coaching session %s: %w", id, domain.ErrFollowUpResolved)
		}

		var note any
		if r.Note != "" {
			note = r.Note
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "follow_up_status", Value: string(r.Outcome)},
			{Path: "follow_up_note", Value: note},
			{Path: "followed_up_at", Value: r.At},
		})
	})
}
