package coaching_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/domain"
)

const coachingReply = "You said yes when your team is buried.\n" +
	"COMMITMENT_OPTIONS:\n1. Email them today\n2. Wait until Monday\n3. Ask a peer first\n"

func testPrinciple() domain.Principle {
	return domain.Principle{ID: "p-1", UserID: "u-1", Text: "I protect my team's focus, even when my boss asks"}
}

func toWedge(t *testing.T) coaching.SelectWedgeState {
	t.Helper()
	fw, _ := coaching.FrameworkByID(coaching.FrameworkStakes)

	described, err := coaching.NewSession(fw).ChoosePrinciple(testPrinciple())
	require.NoError(t, err)

	next, err := described.SubmitSituation("My boss asked me to take on another project")
	require.NoError(t, err)
	wedge, ok := next.(coaching.SelectWedgeState)
	require.True(t, ok, "got phase %s", next.Phase())
	return wedge
}

func TestSessionCrisisSituationStaysPut(t *testing.T) {
	fw, _ := coaching.FrameworkByID(coaching.FrameworkBehavioral)
	start := coaching.NewSession(fw)
	assert.Equal(t, coaching.PhaseSelectPrinciple, start.Phase())

	described, err := start.ChoosePrinciple(testPrinciple())
	require.NoError(t, err)
	assert.Equal(t, coaching.PhaseDescribeSituation, described.Phase())

	flagged, err := described.SubmitSituation("Honestly I want to die after that review")
	assert.ErrorIs(t, err, domain.ErrCrisisDetected)
	assert.Equal(t, coaching.PhaseDescribeSituation, flagged.Phase())
	assert.True(t, flagged.(coaching.DescribeSituationState).CrisisDetected)
	assert.False(t, described.CrisisDetected, "receiver must not change")

	clean, err := flagged.(coaching.DescribeSituationState).SubmitSituation("My review went badly")
	require.NoError(t, err)
	assert.Equal(t, coaching.PhaseSelectWedge, clean.Phase())
	assert.Equal(t, "My review went badly", clean.(coaching.SelectWedgeState).Situation)
}

func TestSessionEmptySituationRejected(t *testing.T) {
	fw, _ := coaching.FrameworkByID(coaching.FrameworkBehavioral)
	described, err := coaching.NewSession(fw).ChoosePrinciple(testPrinciple())
	require.NoError(t, err)

	next, err := described.SubmitSituation("   ")
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	assert.Equal(t, described, next)
}

func TestSessionChoosePrincipleRequiresText(t *testing.T) {
	_, err := coaching.NewSession(domain.Framework{ID: "x"}).ChoosePrinciple(domain.Principle{})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestSessionChooseWedge(t *testing.T) {
	wedge := toWedge(t)

	_, err := wedge.ChooseWedge("Party")
	assert.ErrorIs(t, err, domain.ErrInvalidWedge)

	c, err := wedge.ChooseWedge("meeting")
	require.NoError(t, err)
	assert.Equal(t, coaching.PhaseCoaching, c.Phase())
	assert.Equal(t, domain.WedgeMeeting, c.Wedge)
	require.Len(t, c.Conversation, 1)
	assert.Equal(t, domain.RoleUser, c.Conversation[0].Role)
	assert.Equal(t,
		"I'm dealing with a meeting situation. Here's what happened: My boss asked me to take on another project",
		c.Conversation[0].Text())

	req := c.ChatRequest()
	assert.Contains(t, req.SystemPrompt, "Stakes Framing")
	assert.Contains(t, req.SystemPrompt, testPrinciple().Text)
	assert.Equal(t, c.Conversation, req.Messages)
}

func TestSessionFullFlow(t *testing.T) {
	c, err := toWedge(t).ChooseWedge("Conflict")
	require.NoError(t, err)

	// A reply without the marker keeps coaching going.
	next := c.CompleteTurn("What would your principle say here?")
	c, ok := next.(coaching.CoachingState)
	require.True(t, ok)

	_, err = c.AddUserTurn("I could kill myself over this")
	assert.ErrorIs(t, err, domain.ErrCrisisDetected)
	_, err = c.AddUserTurn("")
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	c, err = c.AddUserTurn("It would say protect the team")
	require.NoError(t, err)
	require.Len(t, c.Conversation, 3)

	next = c.CompleteTurn(coachingReply)
	commit, ok := next.(coaching.CommitmentState)
	require.True(t, ok, "got phase %s", next.Phase())
	if diff := cmp.Diff([]string{"Email them today", "Wait until Monday", "Ask a peer first"}, commit.Options); diff != "" {
		t.Fatalf("options (-want +got):\n%s", diff)
	}

	_, err = commit.ChooseCommitment("Quit")
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	fb, err := commit.ChooseCommitment("Wait until Monday")
	require.NoError(t, err)
	assert.Equal(t, coaching.PhaseFeedback, fb.Phase())

	_, err = fb.Record("s-1", "u-1", 2, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec, err := fb.Record("s-1", "u-1", domain.FeedbackHelpful, now)
	require.NoError(t, err)
	assert.Equal(t, domain.CoachingSessionID("s-1"), rec.ID)
	assert.Equal(t, domain.UserID("u-1"), rec.UserID)
	require.NotNil(t, rec.PrincipleID)
	assert.Equal(t, domain.PrincipleID("p-1"), *rec.PrincipleID)
	assert.Equal(t, domain.WedgeConflict, rec.WedgeLabel)
	assert.Equal(t, coaching.FrameworkStakes, rec.FrameworkUsed)
	assert.Equal(t, "Wait until Monday", rec.Commitment)
	assert.Equal(t, "What would your principle say here?\n\n"+coachingReply, rec.CoachingScript)
	assert.Equal(t, domain.FollowUpPending{}, rec.FollowUp)
	assert.Equal(t, now, rec.CreatedAt)

	done := fb.Complete(rec)
	assert.Equal(t, coaching.PhaseDone, done.Phase())
	assert.Equal(t, domain.CoachingSessionID("s-1"), done.SessionID)
	assert.Equal(t, coaching.FrameworkStakes, done.SessionFramework().ID)
}

func TestSessionBlankCommitmentBlockDoesNotAdvance(t *testing.T) {
	c, err := toWedge(t).ChooseWedge("Anxiety")
	require.NoError(t, err)

	next := c.CompleteTurn("Take a breath.\nCOMMITMENT_OPTIONS:\n\n\n")
	assert.Equal(t, coaching.PhaseCoaching, next.Phase())
}

func TestSessionTransitionsDoNotMutateReceiver(t *testing.T) {
	c, err := toWedge(t).ChooseWedge("Meeting")
	require.NoError(t, err)
	before := len(c.Conversation)

	_ = c.CompleteTurn(coachingReply)
	_, err = c.AddUserTurn("more context")
	require.NoError(t, err)

	assert.Len(t, c.Conversation, before)
}
