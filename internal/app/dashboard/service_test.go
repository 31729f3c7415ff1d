package dashboard_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/ledger/internal/adapters/storage/memory"
	"github.com/PabloGalante/ledger/internal/app/dashboard"
	"github.com/PabloGalante/ledger/internal/domain"
)

var (
	base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ana  = domain.Identity{UserID: "u-1", DisplayName: "Ana"}
)

func newService(store domain.Store) *dashboard.Service {
	return dashboard.NewService(store).WithClock(func() time.Time { return base.Add(72 * time.Hour) })
}

func addSession(t *testing.T, store domain.Store, n int, commitment string) domain.CoachingSessionID {
	t.Helper()
	id := domain.CoachingSessionID(fmt.Sprintf("cs-%d", n))
	require.NoError(t, store.CreateCoachingSession(context.Background(), &domain.CoachingSession{
		ID:            id,
		UserID:        ana.UserID,
		Situation:     "situation",
		WedgeLabel:    domain.WedgeConflict,
		FrameworkUsed: "socratic",
		Commitment:    commitment,
		Feedback:      domain.FeedbackHelpful,
		FollowUp:      domain.FollowUpPending{},
		CreatedAt:     base.Add(time.Duration(n) * time.Hour),
	}))
	return id
}

func TestDashboardForNewUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore()

	d, err := newService(store).GetDashboard(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, "Ana", d.Profile.DisplayName)
	assert.True(t, d.NeedsOnboarding)
	assert.Empty(t, d.Principles)
	assert.Empty(t, d.Sessions)
	assert.Empty(t, d.PendingFollowUps)

	// The profile now exists.
	_, err = store.GetProfile(ctx, ana.UserID)
	require.NoError(t, err)
}

func TestDashboardPendingFollowUps(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore()
	require.NoError(t, store.CreatePrinciple(ctx, &domain.Principle{ID: "p-1", UserID: ana.UserID, Text: "I ask first", CreatedAt: base}))

	addSession(t, store, 1, "Email them today")
	addSession(t, store, 2, "")
	addSession(t, store, 3, "Ask a peer first")
	resolved := addSession(t, store, 4, "Wait until Monday")
	addSession(t, store, 5, "Book the room")
	require.NoError(t, store.ResolveFollowUp(ctx, ana.UserID, resolved, domain.FollowUpResolved{Outcome: domain.FollowUpYes, At: base}))

	d, err := newService(store).GetDashboard(ctx, ana)
	require.NoError(t, err)
	assert.False(t, d.NeedsOnboarding)
	assert.Len(t, d.Sessions, 5)

	require.Len(t, d.PendingFollowUps, dashboard.MaxPendingFollowUps)
	assert.Equal(t, domain.CoachingSessionID("cs-5"), d.PendingFollowUps[0].ID)
	assert.Equal(t, domain.CoachingSessionID("cs-3"), d.PendingFollowUps[1].ID)
}

func TestDashboardShowsRecentSessions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore()

	addSession(t, store, 1, "Email them today")
	addSession(t, store, 2, "Ask a peer first")
	for n := 3; n <= 8; n++ {
		addSession(t, store, n, "")
	}

	d, err := newService(store).GetDashboard(ctx, ana)
	require.NoError(t, err)

	require.Len(t, d.Sessions, dashboard.RecentSessions)
	assert.Equal(t, domain.CoachingSessionID("cs-8"), d.Sessions[0].ID)
	assert.Equal(t, domain.CoachingSessionID("cs-4"), d.Sessions[dashboard.RecentSessions-1].ID)

	// Follow-ups older than the visible history still surface.
	require.Len(t, d.PendingFollowUps, 2)
	assert.Equal(t, domain.CoachingSessionID("cs-2"), d.PendingFollowUps[0].ID)
	assert.Equal(t, domain.CoachingSessionID("cs-1"), d.PendingFollowUps[1].ID)
}

func TestRecordFollowUp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore()
	svc := newService(store)
	id := addSession(t, store, 1, "Email them today")

	_, err := svc.RecordFollowUp(ctx, ana.UserID, id, "maybe", "")
	assert.ErrorIs(t, err, domain.ErrInvalidFollowUp)
	_, err = svc.RecordFollowUp(ctx, ana.UserID, id, "pending", "")
	assert.ErrorIs(t, err, domain.ErrInvalidFollowUp)

	cs, err := svc.RecordFollowUp(ctx, ana.UserID, id, "Partly", "  sent a draft  ")
	require.NoError(t, err)
	got, ok := cs.FollowUp.(domain.FollowUpResolved)
	require.True(t, ok)
	assert.Equal(t, domain.FollowUpPartly, got.Outcome)
	assert.Equal(t, "sent a draft", got.Note)
	assert.True(t, got.At.Equal(base.Add(72*time.Hour)))

	_, err = svc.RecordFollowUp(ctx, ana.UserID, id, "no", "")
	assert.ErrorIs(t, err, domain.ErrFollowUpResolved)

	cs, err = store.GetCoachingSession(ctx, ana.UserID, id)
	require.NoError(t, err)
	assert.Equal(t, domain.FollowUpPartly, cs.FollowUp.Status(), "first answer wins")

	_, err = svc.RecordFollowUp(ctx, "intruder", id, "yes", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
