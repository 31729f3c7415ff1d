// Package storetest holds behaviour checks shared by every domain.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/ledger/internal/domain"
)

// Run exercises newStore against the domain.Store contract. newStore must
// return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) domain.Store) {
	t.Run("Profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
	t.Run("Principles", func(t *testing.T) { testPrinciples(t, newStore(t)) })
	t.Run("CoachingSessions", func(t *testing.T) { testCoachingSessions(t, newStore(t)) })
	t.Run("FollowUpFirstWriteWins", func(t *testing.T) { testFollowUp(t, newStore(t)) })
}

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testProfiles(t *testing.T, s domain.Store) {
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p, err := s.EnsureProfile(ctx, &domain.Profile{ID: "u-1", DisplayName: "Ana", CreatedAt: base})
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.False(t, p.OnboardingComplete)

	// A second ensure keeps the first row.
	p, err = s.EnsureProfile(ctx, &domain.Profile{ID: "u-1", DisplayName: "Other", CreatedAt: base})
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)

	require.NoError(t, s.MarkOnboardingComplete(ctx, "u-1"))
	p, err = s.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, p.OnboardingComplete)

	assert.ErrorIs(t, s.MarkOnboardingComplete(ctx, "ghost"), domain.ErrNotFound)
}

func testPrinciples(t *testing.T, s domain.Store) {
	ctx := context.Background()

	seed := []struct {
		id   domain.PrincipleID
		text string
	}{
		{"p-1", "I listen first"},
		{"p-2", "I speak up, even when nervous"},
	}
	for i, p := range seed {
		require.NoError(t, s.CreatePrinciple(ctx, &domain.Principle{
			ID:            p.id,
			UserID:        "u-1",
			Text:          p.text,
			SourceRegret:  "regret",
			BetterVersion: "better",
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.CreatePrinciple(ctx, &domain.Principle{ID: "p-3", UserID: "u-2", Text: "not yours", CreatedAt: base}))

	got, err := s.ListPrinciplesByUser(ctx, "u-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.PrincipleID("p-2"), got[0].ID, "newest first")
	assert.Equal(t, "regret", got[1].SourceRegret)
	assert.True(t, got[1].CreatedAt.Equal(base))

	limited, err := s.ListPrinciplesByUser(ctx, "u-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListPrinciplesByUser(ctx, "u-3", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	p, err := s.GetPrinciple(ctx, "u-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "I listen first", p.Text)

	_, err = s.GetPrinciple(ctx, "u-1", "p-3")
	assert.ErrorIs(t, err, domain.ErrNotFound, "other users' rows are invisible")
}

func newSession(id domain.CoachingSessionID, owner domain.UserID, at time.Time) *domain.CoachingSession {
	pid := domain.PrincipleID("p-1")
	return &domain.CoachingSession{
		ID:             id,
		UserID:         owner,
		PrincipleID:    &pid,
		Situation:      "My boss piled on another project",
		WedgeLabel:     domain.WedgeMeeting,
		FrameworkUsed:  "stakes",
		CoachingScript: "script",
		Commitment:     "Email them today",
		Feedback:       domain.FeedbackHelpful,
		FollowUp:       domain.FollowUpPending{},
		CreatedAt:      at,
	}
}

func testCoachingSessions(t *testing.T, s domain.Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateCoachingSession(ctx, newSession("s-1", "u-1", base)))
	require.NoError(t, s.CreateCoachingSession(ctx, newSession("s-2", "u-1", base.Add(time.Minute))))
	noPrinciple := newSession("s-3", "u-1", base.Add(2*time.Minute))
	noPrinciple.PrincipleID = nil
	require.NoError(t, s.CreateCoachingSession(ctx, noPrinciple))
	require.NoError(t, s.CreateCoachingSession(ctx, newSession("s-4", "u-2", base)))

	got, err := s.ListCoachingSessionsByUser(ctx, "u-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.CoachingSessionID("s-3"), got[0].ID)
	assert.Nil(t, got[0].PrincipleID)
	assert.Equal(t, domain.CoachingSessionID("s-1"), got[2].ID)

	cs, err := s.GetCoachingSession(ctx, "u-1", "s-1")
	require.NoError(t, err)
	require.NotNil(t, cs.PrincipleID)
	assert.Equal(t, domain.PrincipleID("p-1"), *cs.PrincipleID)
	assert.Equal(t, domain.WedgeMeeting, cs.WedgeLabel)
	assert.Equal(t, domain.FrameworkID("stakes"), cs.FrameworkUsed)
	assert.Equal(t, domain.FeedbackHelpful, cs.Feedback)
	assert.Equal(t, "Email them today", cs.Commitment)
	assert.True(t, cs.PendingFollowUp())

	_, err = s.GetCoachingSession(ctx, "u-2", "s-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testFollowUp(t *testing.T, s domain.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateCoachingSession(ctx, newSession("s-1", "u-1", base)))

	first := domain.FollowUpResolved{Outcome: domain.FollowUpPartly, Note: "sent half of it", At: base.Add(48 * time.Hour)}
	require.NoError(t, s.ResolveFollowUp(ctx, "u-1", "s-1", first))

	second := domain.FollowUpResolved{Outcome: domain.FollowUpNo, At: base.Add(72 * time.Hour)}
	err := s.ResolveFollowUp(ctx, "u-1", "s-1", second)
	assert.ErrorIs(t, err, domain.ErrFollowUpResolved)

	cs, err := s.GetCoachingSession(ctx, "u-1", "s-1")
	require.NoError(t, err)
	resolved, ok := cs.FollowUp.(domain.FollowUpResolved)
	require.True(t, ok, "got %T", cs.FollowUp)
	assert.Equal(t, domain.FollowUpPartly, resolved.Outcome)
	assert.Equal(t, "sent half of it", resolved.Note)
	assert.True(t, resolved.At.Equal(first.At))

	err = s.ResolveFollowUp(ctx, "u-2", "s-1", first)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
