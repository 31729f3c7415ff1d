package coaching

import (
	"strings"
	"time"

	"github.com/PabloGalante/ledger/internal/domain"
)

// OnboardingPhase names a step of the principle extraction flow.
type OnboardingPhase string

const (
	OnboardingPhaseStart      OnboardingPhase = "start"
	OnboardingPhaseConversing OnboardingPhase = "conversing"
	OnboardingPhaseConfirmed  OnboardingPhase = "confirmed"
)

// OnboardingState is Start, Conversing or Confirmed.
type OnboardingState interface {
	Phase() OnboardingPhase
	OnboardingConversation() domain.Conversation
	isOnboardingState()
}

type OnboardingStartState struct{}

type OnboardingConversingState struct {
	Conversation domain.Conversation
}

// OnboardingConfirmedState is terminal. Saved flips once the principle has
// been written; the principle text itself never changes.
type OnboardingConfirmedState struct {
	Conversation  domain.Conversation
	PrincipleText string
	Saved         bool
	PrincipleID   domain.PrincipleID
}

func (OnboardingStartState) Phase() OnboardingPhase      { return OnboardingPhaseStart }
func (OnboardingConversingState) Phase() OnboardingPhase { return OnboardingPhaseConversing }
func (OnboardingConfirmedState) Phase() OnboardingPhase  { return OnboardingPhaseConfirmed }

func (OnboardingStartState) OnboardingConversation() domain.Conversation { return nil }
func (s OnboardingConversingState) OnboardingConversation() domain.Conversation {
	return s.Conversation
}
func (s OnboardingConfirmedState) OnboardingConversation() domain.Conversation {
	return s.Conversation
}

func (OnboardingStartState) isOnboardingState()      {}
func (OnboardingConversingState) isOnboardingState() {}
func (OnboardingConfirmedState) isOnboardingState()  {}

// NewOnboarding starts a principle extraction flow.
func NewOnboarding() OnboardingStartState {
	return OnboardingStartState{}
}

// AddUserTurn records the first message (the regret).
func (s OnboardingStartState) AddUserTurn(text string) (OnboardingConversingState, error) {
	return OnboardingConversingState{}.AddUserTurn(text)
}

// AddUserTurn appends a user message after the crisis gate. On error the
// receiver is returned unchanged.
func (s OnboardingConversingState) AddUserTurn(text string) (OnboardingConversingState, error) {
	if strings.TrimSpace(text) == "" {
		return s, domain.ErrEmptyInput
	}
	if DetectCrisis(text) {
		return s, domain.ErrCrisisDetected
	}
	return OnboardingConversingState{
		Conversation: s.Conversation.Append(domain.NewTextMessage(domain.RoleUser, text)),
	}, nil
}

// ChatRequest builds the backend call for the current conversation.
func (s OnboardingConversingState) ChatRequest() domain.ChatRequest {
	return domain.ChatRequest{
		SystemPrompt: BuildOnboardingPrompt(),
		Messages:     s.Conversation,
	}
}

// CompleteTurn appends an assistant reply and confirms the flow if the reply
// carries a non-empty PRINCIPLE_CONFIRMED: marker.
func (s OnboardingConversingState) CompleteTurn(reply string) OnboardingState {
	conv := s.Conversation.Append(domain.NewTextMessage(domain.RoleAssistant, reply))
	if principle, ok := ParsePrincipleConfirmed(reply); ok {
		return OnboardingConfirmedState{Conversation: conv, PrincipleText: principle}
	}
	return OnboardingConversingState{Conversation: conv}
}

// Principle builds the record to persist. The regret is the first user turn
// and the better version the second.
func (s OnboardingConfirmedState) Principle(id domain.PrincipleID, owner domain.UserID, now time.Time) *domain.Principle {
	turns := s.Conversation.TextsBy(domain.RoleUser)
	p := &domain.Principle{
		ID:        id,
		UserID:    owner,
		Text:      s.PrincipleText,
		CreatedAt: now,
	}
	if len(turns) > 0 {
		p.SourceRegret = turns[0]
	}
	if len(turns) > 1 {
		p.BetterVersion = turns[1]
	}
	return p
}

// MarkSaved records that the principle has been persisted.
func (s OnboardingConfirmedState) MarkSaved(id domain.PrincipleID) OnboardingConfirmedState {
	next := s
	next.Saved = true
	next.PrincipleID = id
	return next
}
