package domain

import (
	"context"
	"iter"
)

// ChatRequest is one streaming call to the chat backend.
type ChatRequest struct {
	SystemPrompt string
	Messages     Conversation
}

// ChatBackend streams assistant text for a conversation. The sequence yields
// text chunks in order and stops early when ctx is cancelled or the consumer
// stops iterating.
type ChatBackend interface {
	StreamReply(ctx context.Context, req ChatRequest) iter.Seq2[string, error]
}

// ProfileStore defines profile persistence.
type ProfileStore interface {
	// EnsureProfile returns the stored profile, creating p if none exists.
	EnsureProfile(ctx context.Context, p *Profile) (*Profile, error)
	GetProfile(ctx context.Context, id UserID) (*Profile, error)
	MarkOnboardingComplete(ctx context.Context, id UserID) error
}

// PrincipleStore defines principle persistence. Reads are scoped to owner.
type PrincipleStore interface {
	CreatePrinciple(ctx context.Context, p *Principle) error
	GetPrinciple(ctx context.Context, owner UserID, id PrincipleID) (*Principle, error)
	// ListPrinciplesByUser returns newest first. limit <= 0 means all.
	ListPrinciplesByUser(ctx context.Context, owner UserID, limit int) ([]*Principle, error)
}

// CoachingSessionStore defines coaching session persistence.
type CoachingSessionStore interface {
	CreateCoachingSession(ctx context.Context, s *CoachingSession) error
	GetCoachingSession(ctx context.Context, owner UserID, id CoachingSessionID) (*CoachingSession, error)
	// ListCoachingSessionsByUser returns newest first. limit <= 0 means all.
	ListCoachingSessionsByUser(ctx context.Context, owner UserID, limit int) ([]*CoachingSession, error)
	// ResolveFollowUp records the check-in once. A second call returns
	// ErrFollowUpResolved and leaves the first answer in place.
	ResolveFollowUp(ctx context.Context, owner UserID, id CoachingSessionID, r FollowUpResolved) error
}

// Store is the full relational store used by the services.
type Store interface {
	ProfileStore
	PrincipleStore
	CoachingSessionStore
}
