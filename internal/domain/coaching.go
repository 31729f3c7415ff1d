package domain

import (
	"strings"
	"time"
)

// FrameworkID identifies a coaching framework.
type FrameworkID string

// Framework is a rhetorical strategy applied to a whole coaching session.
type Framework struct {
	ID          FrameworkID `json:"id"`
	Label       string      `json:"label"`
	Instruction string      `json:"instruction"`
}

// WedgeLabel categorizes the situation a coaching session addresses.
type WedgeLabel string

const (
	WedgeMeeting         WedgeLabel = "Meeting"
	WedgePresentation    WedgeLabel = "Presentation"
	WedgeConflict        WedgeLabel = "Conflict"
	WedgeProcrastination WedgeLabel = "Procrastination"
	WedgeAnxiety         WedgeLabel = "Anxiety"
)

// WedgeLabels is the closed set of wedges, in display order.
var WedgeLabels = []WedgeLabel{
	WedgeMeeting,
	WedgePresentation,
	WedgeConflict,
	WedgeProcrastination,
	WedgeAnxiety,
}

// ParseWedgeLabel matches s case-insensitively against the closed set.
func ParseWedgeLabel(s string) (WedgeLabel, bool) {
	for _, w := range WedgeLabels {
		if strings.EqualFold(string(w), strings.TrimSpace(s)) {
			return w, true
		}
	}
	return "", false
}

// Profile is the per-user row created alongside the identity.
type Profile struct {
	ID                 UserID
	DisplayName        string
	OnboardingComplete bool
	CreatedAt          time.Time
}

// Principle is a first-person leadership commitment extracted from a regret.
// It is written once and never updated.
type Principle struct {
	ID            PrincipleID
	UserID        UserID
	Text          string
	SourceRegret  string
	BetterVersion string
	CreatedAt     time.Time
}

// Feedback is the binary helpfulness rating given at the end of a session.
type Feedback int

const (
	FeedbackNotHelpful Feedback = 0
	FeedbackHelpful    Feedback = 1
)

// Valid reports whether f is 0 or 1.
func (f Feedback) Valid() bool {
	return f == FeedbackNotHelpful || f == FeedbackHelpful
}

// FollowUpStatus is the outcome recorded at the follow-up check-in.
type FollowUpStatus string

const (
	FollowUpPendingStatus FollowUpStatus = "pending"
	FollowUpYes           FollowUpStatus = "yes"
	FollowUpPartly        FollowUpStatus = "partly"
	FollowUpNo            FollowUpStatus = "no"
)

// ParseFollowUpStatus accepts only the resolved statuses.
func ParseFollowUpStatus(s string) (FollowUpStatus, bool) {
	switch FollowUpStatus(s) {
	case FollowUpYes, FollowUpPartly, FollowUpNo:
		return FollowUpStatus(s), true
	}
	return "", false
}

// FollowUp is either FollowUpPending or FollowUpResolved. A resolved
// follow-up is never changed again.
type FollowUp interface {
	Status() FollowUpStatus
	isFollowUp()
}

// FollowUpPending is the state of every session when it is created.
type FollowUpPending struct{}

func (FollowUpPending) Status() FollowUpStatus { return FollowUpPendingStatus }
func (FollowUpPending) isFollowUp()            {}

// FollowUpResolved records the check-in answer.
type FollowUpResolved struct {
	Outcome FollowUpStatus
	Note    string
	At      time.Time
}

func (r FollowUpResolved) Status() FollowUpStatus { return r.Outcome }
func (FollowUpResolved) isFollowUp()              {}

// CoachingSession is the persisted record of a completed coaching flow.
type CoachingSession struct {
	ID             CoachingSessionID
	UserID         UserID
	PrincipleID    *PrincipleID
	Situation      string
	WedgeLabel     WedgeLabel
	FrameworkUsed  FrameworkID
	CoachingScript string
	Commitment     string
	Feedback       Feedback
	FollowUp       FollowUp
	CreatedAt      time.Time
}

// PendingFollowUp reports whether the session still awaits a check-in.
func (s *CoachingSession) PendingFollowUp() bool {
	if s.FollowUp == nil {
		return true
	}
	_, pending := s.FollowUp.(FollowUpPending)
	return pending
}
