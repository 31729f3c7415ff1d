package httpadapter

import (
	"time"

	"github.com/PabloGalante/ledger/internal/app/conversation"
	"github.com/PabloGalante/ledger/internal/app/dashboard"
	"github.com/PabloGalante/ledger/internal/domain"
)

type profileResponse struct {
	ID                 string    `json:"id"`
	DisplayName        string    `json:"display_name"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
}

type principleResponse struct {
	ID            string    `json:"id"`
	Text          string    `json:"principle_text"`
	SourceRegret  string    `json:"source_regret"`
	BetterVersion string    `json:"better_version"`
	CreatedAt     time.Time `json:"created_at"`
}

type coachingSessionResponse struct {
	ID             string     `json:"id"`
	PrincipleID    *string    `json:"principle_id"`
	Situation      string     `json:"situation"`
	WedgeLabel     string     `json:"wedge_label"`
	FrameworkUsed  string     `json:"framework_used"`
	CoachingScript string     `json:"coaching_script"`
	Commitment     string     `json:"commitment"`
	Feedback       int        `json:"feedback"`
	FollowUpStatus string     `json:"follow_up_status"`
	FollowUpNote   *string    `json:"follow_up_note"`
	FollowedUpAt   *time.Time `json:"followed_up_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type dashboardResponse struct {
	Profile          profileResponse           `json:"profile"`
	Principles       []principleResponse       `json:"principles"`
	Sessions         []coachingSessionResponse `json:"sessions"`
	PendingFollowUps []coachingSessionResponse `json:"pending_follow_ups"`
	NeedsOnboarding  bool                      `json:"needs_onboarding"`
}

type frameworksResponse struct {
	Frameworks []domain.Framework  `json:"frameworks"`
	Wedges     []domain.WedgeLabel `json:"wedges"`
}

type messageResponse struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type onboardingResponse struct {
	ID            string            `json:"id"`
	Phase         string            `json:"phase"`
	Messages      []messageResponse `json:"messages"`
	PrincipleText string            `json:"principle_text,omitempty"`
	PrincipleID   string            `json:"principle_id,omitempty"`
	Saved         bool              `json:"saved"`
}

type sessionResponse struct {
	ID                string             `json:"id"`
	Phase             string             `json:"phase"`
	Framework         domain.Framework   `json:"framework"`
	Principle         *principleResponse `json:"principle,omitempty"`
	Situation         string             `json:"situation,omitempty"`
	Wedge             string             `json:"wedge,omitempty"`
	CrisisDetected    bool               `json:"crisis_detected"`
	Messages          []messageResponse  `json:"messages"`
	Options           []string           `json:"options,omitempty"`
	Commitment        string             `json:"commitment,omitempty"`
	Feedback          *int               `json:"feedback,omitempty"`
	CoachingSessionID string             `json:"coaching_session_id,omitempty"`
}

// turnDoneEvent is the payload of the final SSE event of a streamed turn.
type turnDoneEvent struct {
	Reply      string              `json:"reply"`
	Phase      string              `json:"phase"`
	Principle  string              `json:"principle,omitempty"`
	Options    []string            `json:"options,omitempty"`
	Session    *sessionResponse    `json:"session,omitempty"`
	Onboarding *onboardingResponse `json:"onboarding,omitempty"`
}

// ─────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		ID:                 string(p.ID),
		DisplayName:        p.DisplayName,
		OnboardingComplete: p.OnboardingComplete,
		CreatedAt:          p.CreatedAt,
	}
}

func toPrincipleResponse(p *domain.Principle) principleResponse {
	return principleResponse{
		ID:            string(p.ID),
		Text:          p.Text,
		SourceRegret:  p.SourceRegret,
		BetterVersion: p.BetterVersion,
		CreatedAt:     p.CreatedAt,
	}
}

func toPrincipleResponses(ps []*domain.Principle) []principleResponse {
	out := make([]principleResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPrincipleResponse(p))
	}
	return out
}

func toCoachingSessionResponse(cs *domain.CoachingSession) coachingSessionResponse {
	resp := coachingSessionResponse{
		ID:             string(cs.ID),
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
		pid := string(*cs.PrincipleID)
		resp.PrincipleID = &pid
	}
	if r, ok := cs.FollowUp.(domain.FollowUpResolved); ok {
		resp.FollowUpStatus = string(r.Outcome)
		if r.Note != "" {
			note := r.Note
			resp.FollowUpNote = &note
		}
		at := r.At
		resp.FollowedUpAt = &at
	}
	return resp
}

func toCoachingSessionResponses(sessions []*domain.CoachingSession) []coachingSessionResponse {
	out := make([]coachingSessionResponse, 0, len(sessions))
	for _, cs := range sessions {
		out = append(out, toCoachingSessionResponse(cs))
	}
	return out
}

func toDashboardResponse(d *dashboard.Dashboard) dashboardResponse {
	return dashboardResponse{
		Profile:          toProfileResponse(d.Profile),
		Principles:       toPrincipleResponses(d.Principles),
		Sessions:         toCoachingSessionResponses(d.Sessions),
		PendingFollowUps: toCoachingSessionResponses(d.PendingFollowUps),
		NeedsOnboarding:  d.NeedsOnboarding,
	}
}

func toMessageResponses(msgs []conversation.DisplayMessage) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{Role: string(m.Role), Text: m.Text})
	}
	return out
}

func toOnboardingResponse(v *conversation.OnboardingView) onboardingResponse {
	return onboardingResponse{
		ID:            string(v.ID),
		Phase:         string(v.Phase),
		Messages:      toMessageResponses(v.Messages),
		PrincipleText: v.PrincipleText,
		PrincipleID:   string(v.PrincipleID),
		Saved:         v.Saved,
	}
}

func toSessionResponse(v *conversation.SessionView) sessionResponse {
	resp := sessionResponse{
		ID:                string(v.ID),
		Phase:             string(v.Phase),
		Framework:         v.Framework,
		Situation:         v.Situation,
		Wedge:             string(v.Wedge),
		CrisisDetected:    v.CrisisDetected,
		Messages:          toMessageResponses(v.Messages),
		Options:           v.Options,
		Commitment:        v.Commitment,
		CoachingSessionID: string(v.CoachingSessionID),
	}
	if v.Principle != nil {
		p := toPrincipleResponse(v.Principle)
		resp.Principle = &p
	}
	if v.Feedback != nil {
		fb := int(*v.Feedback)
		resp.Feedback = &fb
	}
	return resp
}
