package conversation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

// OnboardingView is the user-facing snapshot of an onboarding flow.
type OnboardingView struct {
	ID            domain.FlowID
	Phase         coaching.OnboardingPhase
	Messages      []DisplayMessage
	PrincipleText string
	PrincipleID   domain.PrincipleID
	Saved         bool
}

func onboardingView(id domain.FlowID, st coaching.OnboardingState) *OnboardingView {
	v := &OnboardingView{
		ID:       id,
		Phase:    st.Phase(),
		Messages: displayMessages(st.OnboardingConversation()),
	}
	if c, ok := st.(coaching.OnboardingConfirmedState); ok {
		v.PrincipleText = c.PrincipleText
		v.PrincipleID = c.PrincipleID
		v.Saved = c.Saved
	}
	return v
}

// OnboardingTurn is the outcome of one streamed onboarding turn.
type OnboardingTurn struct {
	Reply string // display text of the assistant turn
	View  *OnboardingView
}

// StartOnboarding ensures the caller's profile and opens a new principle
// extraction flow.
func (s *Service) StartOnboarding(ctx context.Context, who domain.Identity) (*OnboardingView, error) {
	log := observability.LoggerFromContext(ctx)
	now := s.now()

	if _, err := s.store.EnsureProfile(ctx, &domain.Profile{
		ID:          who.UserID,
		DisplayName: who.DisplayName,
		CreatedAt:   now,
	}); err != nil {
		log.Error("failed to ensure profile", zap.Error(err))
		return nil, fmt.Errorf("start onboarding: %w", err)
	}

	flow := &domain.Flow[coaching.OnboardingState]{
		ID:        domain.FlowID(s.newID()),
		Owner:     who.UserID,
		State:     coaching.NewOnboarding(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.onboarding.CreateFlow(ctx, flow); err != nil {
		log.Error("failed to create onboarding flow", zap.Error(err))
		return nil, fmt.Errorf("start onboarding: %w", err)
	}

	log.Info("onboarding started", zap.String("flow_id", string(flow.ID)))
	return onboardingView(flow.ID, flow.State), nil
}

func (s *Service) GetOnboarding(ctx context.Context, owner domain.UserID, id domain.FlowID) (*OnboardingView, error) {
	flow, err := s.onboarding.GetFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return onboardingView(flow.ID, flow.State), nil
}

// SendOnboardingMessage appends a user turn and streams the coach's reply.
// The user turn is kept even if streaming fails, so the conversation can be
// resumed by sending another message. When the reply confirms a principle it
// is persisted before returning; a persistence error leaves the flow in the
// confirmed phase with Saved unset, and ConfirmOnboarding retries the write.
func (s *Service) SendOnboardingMessage(ctx context.Context, owner domain.UserID, id domain.FlowID, text string, onDelta DeltaFunc) (*OnboardingTurn, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("flow_id", string(id)))

	release, err := s.onboarding.AcquireFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	defer release()

	flow, err := s.onboarding.GetFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	var conversing coaching.OnboardingConversingState
	switch st := flow.State.(type) {
	case coaching.OnboardingStartState:
		conversing, err = st.AddUserTurn(text)
	case coaching.OnboardingConversingState:
		conversing, err = st.AddUserTurn(text)
	default:
		return nil, invalidTransition("send onboarding message", flow.State.Phase())
	}
	if err != nil {
		if isUserError(err) {
			log.Info("onboarding message rejected", zap.Int("text_len", len(text)), zap.Error(err))
		}
		return nil, err
	}
	if err := s.onboarding.UpdateFlow(ctx, owner, id, conversing, s.now()); err != nil {
		return nil, err
	}

	reply, err := s.streamTurn(ctx, conversing.ChatRequest(), onDelta)
	if err != nil {
		return nil, err
	}

	next := conversing.CompleteTurn(reply)
	if err := s.onboarding.UpdateFlow(ctx, owner, id, next, s.now()); err != nil {
		return nil, err
	}

	turn := &OnboardingTurn{Reply: coaching.DisplayText(reply)}
	confirmed, ok := next.(coaching.OnboardingConfirmedState)
	if !ok {
		turn.View = onboardingView(id, next)
		return turn, nil
	}

	log.Info("principle confirmed", zap.Int("principle_len", len(confirmed.PrincipleText)))
	saved, err := s.savePrinciple(ctx, owner, id, confirmed)
	turn.View = onboardingView(id, saved)
	return turn, err
}

// ConfirmOnboarding retries persisting a confirmed principle. It is a no-op
// once the principle has been saved.
func (s *Service) ConfirmOnboarding(ctx context.Context, owner domain.UserID, id domain.FlowID) (*OnboardingView, error) {
	release, err := s.onboarding.AcquireFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	defer release()

	flow, err := s.onboarding.GetFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	confirmed, ok := flow.State.(coaching.OnboardingConfirmedState)
	if !ok {
		return nil, invalidTransition("confirm onboarding", flow.State.Phase())
	}
	if confirmed.Saved {
		return onboardingView(id, confirmed), nil
	}

	saved, err := s.savePrinciple(ctx, owner, id, confirmed)
	return onboardingView(id, saved), err
}

// savePrinciple writes the principle then flags the profile. Each step is
// recorded in the flow so a retry never writes the principle twice.
func (s *Service) savePrinciple(ctx context.Context, owner domain.UserID, id domain.FlowID, st coaching.OnboardingConfirmedState) (coaching.OnboardingConfirmedState, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("flow_id", string(id)))

	if st.PrincipleID == "" {
		pid := domain.PrincipleID(s.newID())
		if err := s.store.CreatePrinciple(ctx, st.Principle(pid, owner, s.now())); err != nil {
			log.Error("failed to persist principle", zap.Error(err))
			return st, fmt.Errorf("save principle: %w", err)
		}
		st.PrincipleID = pid
		if err := s.onboarding.UpdateFlow(ctx, owner, id, st, s.now()); err != nil {
			return st, err
		}
	}

	if err := s.store.MarkOnboardingComplete(ctx, owner); err != nil {
		log.Error("failed to mark onboarding complete", zap.Error(err))
		return st, fmt.Errorf("mark onboarding complete: %w", err)
	}

	st = st.MarkSaved(st.PrincipleID)
	if err := s.onboarding.UpdateFlow(ctx, owner, id, st, s.now()); err != nil {
		return st, err
	}
	log.Info("principle saved", zap.String("principle_id", string(st.PrincipleID)))
	return st, nil
}
