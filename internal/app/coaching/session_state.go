package coaching

import (
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/ledger/internal/domain"
)

// Phase names a step of the coaching flow.
type Phase string

const (
	PhaseSelectPrinciple   Phase = "select-principle"
	PhaseDescribeSituation Phase = "describe-situation"
	PhaseSelectWedge       Phase = "select-wedge"
	PhaseCoaching          Phase = "coaching"
	PhaseCommitment        Phase = "commitment"
	PhaseFeedback          Phase = "feedback"
	PhaseDone              Phase = "done"
)

// SessionState is one of the seven coaching phases. Each concrete state
// carries only the data valid in that phase. States are values: every
// transition returns a new state and leaves the receiver untouched.
type SessionState interface {
	Phase() Phase
	SessionFramework() domain.Framework
	isSessionState()
}

// Setup is what the user has chosen by the time coaching starts.
type Setup struct {
	Framework domain.Framework
	Principle domain.Principle
	Situation string
	Wedge     domain.WedgeLabel
}

// SelectPrincipleState is the entry phase.
type SelectPrincipleState struct {
	Framework domain.Framework
}

// DescribeSituationState waits for the situation text.
type DescribeSituationState struct {
	Framework      domain.Framework
	Principle      domain.Principle
	CrisisDetected bool
}

// SelectWedgeState waits for the wedge label.
type SelectWedgeState struct {
	Framework domain.Framework
	Principle domain.Principle
	Situation string
}

// CoachingState is the free-form chat phase.
type CoachingState struct {
	Setup
	Conversation domain.Conversation
}

// CommitmentState offers the parsed options.
type CommitmentState struct {
	Setup
	Conversation domain.Conversation
	Options      []string
}

// FeedbackState waits for the helpfulness rating.
type FeedbackState struct {
	Setup
	Conversation domain.Conversation
	Commitment   string
}

// DoneState is terminal; the coaching session has been persisted.
type DoneState struct {
	Setup
	Commitment string
	Feedback   domain.Feedback
	SessionID  domain.CoachingSessionID
}

func (SelectPrincipleState) Phase() Phase   { return PhaseSelectPrinciple }
func (DescribeSituationState) Phase() Phase { return PhaseDescribeSituation }
func (SelectWedgeState) Phase() Phase       { return PhaseSelectWedge }
func (CoachingState) Phase() Phase          { return PhaseCoaching }
func (CommitmentState) Phase() Phase        { return PhaseCommitment }
func (FeedbackState) Phase() Phase          { return PhaseFeedback }
func (DoneState) Phase() Phase              { return PhaseDone }

func (s SelectPrincipleState) SessionFramework() domain.Framework   { return s.Framework }
func (s DescribeSituationState) SessionFramework() domain.Framework { return s.Framework }
func (s SelectWedgeState) SessionFramework() domain.Framework       { return s.Framework }
func (s Setup) SessionFramework() domain.Framework                  { return s.Framework }

func (SelectPrincipleState) isSessionState()   {}
func (DescribeSituationState) isSessionState() {}
func (SelectWedgeState) isSessionState()       {}
func (CoachingState) isSessionState()          {}
func (CommitmentState) isSessionState()        {}
func (FeedbackState) isSessionState()          {}
func (DoneState) isSessionState()              {}

// NewSession starts a coaching flow with its framework fixed for good.
func NewSession(fw domain.Framework) SelectPrincipleState {
	return SelectPrincipleState{Framework: fw}
}

// ChoosePrinciple moves to DescribeSituation.
func (s SelectPrincipleState) ChoosePrinciple(p domain.Principle) (DescribeSituationState, error) {
	if strings.TrimSpace(p.Text) == "" {
		return DescribeSituationState{}, fmt.Errorf("choose principle: %w", domain.ErrEmptyInput)
	}
	return DescribeSituationState{Framework: s.Framework, Principle: p}, nil
}

// SubmitSituation advances to SelectWedge when text is non-empty and clears
// the crisis gate. On a crisis match it returns the same phase with
// CrisisDetected set, together with ErrCrisisDetected; on empty input it
// returns the receiver unchanged with ErrEmptyInput.
func (s DescribeSituationState) SubmitSituation(text string) (SessionState, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s, domain.ErrEmptyInput
	}
	if DetectCrisis(text) {
		next := s
		next.CrisisDetected = true
		return next, domain.ErrCrisisDetected
	}
	return SelectWedgeState{
		Framework: s.Framework,
		Principle: s.Principle,
		Situation: text,
	}, nil
}

// ChooseWedge starts coaching. The returned state already holds the
// synthesized opening user turn, ready to be sent to the chat backend.
func (s SelectWedgeState) ChooseWedge(label string) (CoachingState, error) {
	wedge, ok := domain.ParseWedgeLabel(label)
	if !ok {
		return CoachingState{}, fmt.Errorf("choose wedge %q: %w", label, domain.ErrInvalidWedge)
	}
	setup := Setup{
		Framework: s.Framework,
		Principle: s.Principle,
		Situation: s.Situation,
		Wedge:     wedge,
	}
	opening := domain.NewTextMessage(domain.RoleUser, OpeningMessage(wedge, s.Situation))
	return CoachingState{
		Setup:        setup,
		Conversation: domain.Conversation{}.Append(opening),
	}, nil
}

// ChatRequest builds the backend call for the current conversation.
func (s CoachingState) ChatRequest() domain.ChatRequest {
	return domain.ChatRequest{
		SystemPrompt: BuildCoachingPrompt(s.Principle.Text, s.Situation, s.Wedge, s.Framework),
		Messages:     s.Conversation,
	}
}

// AddUserTurn appends a chat turn after checking it against the crisis gate.
// On error the receiver is returned unchanged.
func (s CoachingState) AddUserTurn(text string) (CoachingState, error) {
	if strings.TrimSpace(text) == "" {
		return s, domain.ErrEmptyInput
	}
	if DetectCrisis(text) {
		return s, domain.ErrCrisisDetected
	}
	next := s
	next.Conversation = s.Conversation.Append(domain.NewTextMessage(domain.RoleUser, text))
	return next, nil
}

// CompleteTurn appends a finished assistant reply. If the reply carries at
// least one commitment option the flow moves to Commitment; otherwise it
// stays in Coaching. reply must be the complete text of the turn.
func (s CoachingState) CompleteTurn(reply string) SessionState {
	conv := s.Conversation.Append(domain.NewTextMessage(domain.RoleAssistant, reply))
	if options := ParseCommitmentOptions(reply); len(options) > 0 {
		return CommitmentState{
			Setup:        s.Setup,
			Conversation: conv,
			Options:      options,
		}
	}
	return CoachingState{Setup: s.Setup, Conversation: conv}
}

// ChooseCommitment accepts one of the offered options.
func (s CommitmentState) ChooseCommitment(option string) (FeedbackState, error) {
	option = strings.TrimSpace(option)
	for _, o := range s.Options {
		if o == option {
			return FeedbackState{
				Setup:        s.Setup,
				Conversation: s.Conversation,
				Commitment:   o,
			}, nil
		}
	}
	return FeedbackState{}, fmt.Errorf("choose commitment: %w", domain.ErrInvalidOption)
}

// Record builds the coaching session to persist for the given rating.
func (s FeedbackState) Record(id domain.CoachingSessionID, owner domain.UserID, rating domain.Feedback, now time.Time) (*domain.CoachingSession, error) {
	if !rating.Valid() {
		return nil, domain.ErrInvalidRating
	}
	var principleID *domain.PrincipleID
	if s.Principle.ID != "" {
		pid := s.Principle.ID
		principleID = &pid
	}
	return &domain.CoachingSession{
		ID:             id,
		UserID:         owner,
		PrincipleID:    principleID,
		Situation:      s.Situation,
		WedgeLabel:     s.Wedge,
		FrameworkUsed:  s.Framework.ID,
		CoachingScript: CoachingScript(s.Conversation),
		Commitment:     s.Commitment,
		Feedback:       rating,
		FollowUp:       domain.FollowUpPending{},
		CreatedAt:      now,
	}, nil
}

// Complete moves to Done once rec has been persisted.
func (s FeedbackState) Complete(rec *domain.CoachingSession) DoneState {
	return DoneState{
		Setup:      s.Setup,
		Commitment: s.Commitment,
		Feedback:   rec.Feedback,
		SessionID:  rec.ID,
	}
}

// CoachingScript joins every assistant turn with a blank line.
func CoachingScript(conv domain.Conversation) string {
	return strings.Join(conv.TextsBy(domain.RoleAssistant), "\n\n")
}
