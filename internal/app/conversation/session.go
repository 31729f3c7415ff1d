package conversation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

// SessionView is the user-facing snapshot of a coaching flow. Fields that do
// not apply to the current phase are zero.
type SessionView struct {
	ID                domain.FlowID
	Phase             coaching.Phase
	Framework         domain.Framework
	Principle         *domain.Principle
	Situation         string
	Wedge             domain.WedgeLabel
	CrisisDetected    bool
	Messages          []DisplayMessage
	Options           []string
	Commitment        string
	Feedback          *domain.Feedback
	CoachingSessionID domain.CoachingSessionID
}

func sessionView(id domain.FlowID, st coaching.SessionState) *SessionView {
	v := &SessionView{
		ID:        id,
		Phase:     st.Phase(),
		Framework: st.SessionFramework(),
		Messages:  []DisplayMessage{},
	}
	setup := func(s coaching.Setup) {
		p := s.Principle
		v.Principle = &p
		v.Situation = s.Situation
		v.Wedge = s.Wedge
	}

	switch st := st.(type) {
	case coaching.DescribeSituationState:
		p := st.Principle
		v.Principle = &p
		v.CrisisDetected = st.CrisisDetected
	case coaching.SelectWedgeState:
		p := st.Principle
		v.Principle = &p
		v.Situation = st.Situation
	case coaching.CoachingState:
		setup(st.Setup)
		v.Messages = displayMessages(st.Conversation)
	case coaching.CommitmentState:
		setup(st.Setup)
		v.Messages = displayMessages(st.Conversation)
		v.Options = append([]string(nil), st.Options...)
	case coaching.FeedbackState:
		setup(st.Setup)
		v.Messages = displayMessages(st.Conversation)
		v.Commitment = st.Commitment
	case coaching.DoneState:
		setup(st.Setup)
		v.Commitment = st.Commitment
		fb := st.Feedback
		v.Feedback = &fb
		v.CoachingSessionID = st.SessionID
	}
	return v
}

// CoachingTurn is the outcome of one streamed coaching turn.
type CoachingTurn struct {
	Reply string // display text of the assistant turn
	View  *SessionView
}

// StartCoachingSession opens a coaching flow. The framework is picked at
// random, avoiding the one used by the caller's most recent session.
func (s *Service) StartCoachingSession(ctx context.Context, owner domain.UserID) (*SessionView, error) {
	log := observability.LoggerFromContext(ctx)

	recent, err := s.store.ListCoachingSessionsByUser(ctx, owner, 1)
	if err != nil {
		log.Error("failed to load last session", zap.Error(err))
		return nil, fmt.Errorf("start coaching session: %w", err)
	}
	var exclude domain.FrameworkID
	if len(recent) > 0 {
		exclude = recent[0].FrameworkUsed
	}

	pool := coaching.Frameworks()
	fw, err := coaching.PickFramework(pool, exclude, s.rnd)
	if errors.Is(err, domain.ErrEmptyPool) {
		fw, err = coaching.PickFramework(pool, "", s.rnd)
	}
	if err != nil {
		return nil, fmt.Errorf("start coaching session: %w", err)
	}

	now := s.now()
	flow := &domain.Flow[coaching.SessionState]{
		ID:        domain.FlowID(s.newID()),
		Owner:     owner,
		State:     coaching.NewSession(fw),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.CreateFlow(ctx, flow); err != nil {
		log.Error("failed to create coaching flow", zap.Error(err))
		return nil, fmt.Errorf("start coaching session: %w", err)
	}

	log.Info("coaching session started",
		zap.String("flow_id", string(flow.ID)),
		zap.String("framework", string(fw.ID)),
		zap.String("excluded", string(exclude)),
	)
	return sessionView(flow.ID, flow.State), nil
}

func (s *Service) GetCoachingSession(ctx context.Context, owner domain.UserID, id domain.FlowID) (*SessionView, error) {
	flow, err := s.sessions.GetFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return sessionView(flow.ID, flow.State), nil
}

// transition runs fn against the current state under the flow's in-flight
// gate and stores the state it returns. If fn fails with a non-nil state,
// that state is stored as well.
func (s *Service) transition(
	ctx context.Context,
	owner domain.UserID,
	id domain.FlowID,
	fn func(coaching.SessionState) (coaching.SessionState, error),
) (*SessionView, error) {
	release, err := s.sessions.AcquireFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	defer release()

	flow, err := s.sessions.GetFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	next, fnErr := fn(flow.State)
	if next == nil {
		return nil, fnErr
	}
	if err := s.sessions.UpdateFlow(ctx, owner, id, next, s.now()); err != nil {
		return nil, err
	}
	return sessionView(id, next), fnErr
}

// SelectPrinciple moves to DescribeSituation. An unknown principle leaves the
// flow where it is.
func (s *Service) SelectPrinciple(ctx context.Context, owner domain.UserID, id domain.FlowID, principleID domain.PrincipleID) (*SessionView, error) {
	return s.transition(ctx, owner, id, func(cur coaching.SessionState) (coaching.SessionState, error) {
		st, ok := cur.(coaching.SelectPrincipleState)
		if !ok {
			return nil, invalidTransition("select principle", cur.Phase())
		}
		p, err := s.store.GetPrinciple(ctx, owner, principleID)
		if err != nil {
			return nil, fmt.Errorf("select principle: %w", err)
		}
		next, err := st.ChoosePrinciple(*p)
		if err != nil {
			return nil, err
		}
		return next, nil
	})
}

// SubmitSituation runs the crisis gate over the situation. A crisis match is
// stored (the flow stays in DescribeSituation with the flag set) and
// reported as ErrCrisisDetected together with the view.
func (s *Service) SubmitSituation(ctx context.Context, owner domain.UserID, id domain.FlowID, text string) (*SessionView, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("flow_id", string(id)))

	return s.transition(ctx, owner, id, func(cur coaching.SessionState) (coaching.SessionState, error) {
		st, ok := cur.(coaching.DescribeSituationState)
		if !ok {
			return nil, invalidTransition("submit situation", cur.Phase())
		}
		next, err := st.SubmitSituation(text)
		switch {
		case errors.Is(err, domain.ErrCrisisDetected):
			log.Warn("crisis language in situation", zap.Int("text_len", len(text)))
			return next, err
		case err != nil:
			return nil, err
		}
		return next, nil
	})
}

// SelectWedge starts coaching and streams the first assistant turn, prompted
// by the synthesized opening message.
func (s *Service) SelectWedge(ctx context.Context, owner domain.UserID, id domain.FlowID, wedge string, onDelta DeltaFunc) (*CoachingTurn, error) {
	return s.coachingTurn(ctx, owner, id, onDelta, func(cur coaching.SessionState) (coaching.CoachingState, error) {
		st, ok := cur.(coaching.SelectWedgeState)
		if !ok {
			return coaching.CoachingState{}, invalidTransition("select wedge", cur.Phase())
		}
		return st.ChooseWedge(wedge)
	})
}

// SendCoachingMessage appends a user turn and streams the reply. A reply that
// carries commitment options moves the flow to Commitment.
func (s *Service) SendCoachingMessage(ctx context.Context, owner domain.UserID, id domain.FlowID, text string, onDelta DeltaFunc) (*CoachingTurn, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("flow_id", string(id)))

	return s.coachingTurn(ctx, owner, id, onDelta, func(cur coaching.SessionState) (coaching.CoachingState, error) {
		st, ok := cur.(coaching.CoachingState)
		if !ok {
			return coaching.CoachingState{}, invalidTransition("send coaching message", cur.Phase())
		}
		next, err := st.AddUserTurn(text)
		if isUserError(err) {
			log.Info("coaching message rejected", zap.Int("text_len", len(text)), zap.Error(err))
		}
		return next, err
	})
}

// coachingTurn stores the user turn produced by prepare, streams the reply and
// stores the completed turn. If streaming fails the user turn stays stored
// and the flow remains in Coaching.
func (s *Service) coachingTurn(
	ctx context.Context,
	owner domain.UserID,
	id domain.FlowID,
	onDelta DeltaFunc,
	prepare func(coaching.SessionState) (coaching.CoachingState, error),
) (*CoachingTurn, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("flow_id", string(id)))

	release, err := s.sessions.AcquireFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	defer release()

	flow, err := s.sessions.GetFlow(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	pending, err := prepare(flow.State)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateFlow(ctx, owner, id, pending, s.now()); err != nil {
		return nil, err
	}

	reply, err := s.streamTurn(ctx, pending.ChatRequest(), onDelta)
	if err != nil {
		return nil, err
	}

	next := pending.CompleteTurn(reply)
	if err := s.sessions.UpdateFlow(ctx, owner, id, next, s.now()); err != nil {
		return nil, err
	}
	if c, ok := next.(coaching.CommitmentState); ok {
		log.Info("commitment options offered", zap.Int("options", len(c.Options)))
	}

	return &CoachingTurn{
		Reply: coaching.DisplayText(reply),
		View:  sessionView(id, next),
	}, nil
}

// SelectCommitment accepts one of the offered options.
func (s *Service) SelectCommitment(ctx context.Context, owner domain.UserID, id domain.FlowID, option string) (*SessionView, error) {
	return s.transition(ctx, owner, id, func(cur coaching.SessionState) (coaching.SessionState, error) {
		st, ok := cur.(coaching.CommitmentState)
		if !ok {
			return nil, invalidTransition("select commitment", cur.Phase())
		}
		next, err := st.ChooseCommitment(option)
		if err != nil {
			return nil, err
		}
		return next, nil
	})
}

// SubmitFeedback persists the coaching session with the rating and finishes
// the flow. A failed write leaves the flow in Feedback so the rating can be
// submitted again.
func (s *Service) SubmitFeedback(ctx context.Context, owner domain.UserID, id domain.FlowID, rating domain.Feedback) (*SessionView, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("flow_id", string(id)))

	return s.transition(ctx, owner, id, func(cur coaching.SessionState) (coaching.SessionState, error) {
		st, ok := cur.(coaching.FeedbackState)
		if !ok {
			return nil, invalidTransition("submit feedback", cur.Phase())
		}
		rec, err := st.Record(domain.CoachingSessionID(s.newID()), owner, rating, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.store.CreateCoachingSession(ctx, rec); err != nil {
			log.Error("failed to persist coaching session", zap.Error(err))
			return nil, fmt.Errorf("save coaching session: %w", err)
		}

		log.Info("coaching session saved",
			zap.String("coaching_session_id", string(rec.ID)),
			zap.String("framework", string(rec.FrameworkUsed)),
			zap.Int("feedback", int(rec.Feedback)),
		)
		return st.Complete(rec), nil
	})
}
