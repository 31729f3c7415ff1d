package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

const defaultStreamTimeout = 30 * time.Second

// Service runs onboarding and coaching flows: it applies the phase machines,
// streams assistant turns from the chat backend and persists the artifacts
// each flow produces.
type Service struct {
	chat       domain.ChatBackend
	store      domain.Store
	onboarding domain.FlowStore[coaching.OnboardingState]
	sessions   domain.FlowStore[coaching.SessionState]

	rnd           coaching.RandSource
	now           func() time.Time
	newID         func() string
	streamTimeout time.Duration
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand sets the source used to pick a session framework.
func WithRand(rnd coaching.RandSource) Option {
	return func(s *Service) { s.rnd = rnd }
}

// WithIDGenerator overrides uuid.NewString for flow and record ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithStreamTimeout bounds a single streamed turn. Values <= 0 are ignored.
func WithStreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.streamTimeout = d
		}
	}
}

func NewService(
	chat domain.ChatBackend,
	store domain.Store,
	onboarding domain.FlowStore[coaching.OnboardingState],
	sessions domain.FlowStore[coaching.SessionState],
	opts ...Option,
) *Service {
	s := &Service{
		chat:          chat,
		store:         store,
		onboarding:    onboarding,
		sessions:      sessions,
		rnd:           sharedRand{},
		now:           time.Now,
		newID:         uuid.NewString,
		streamTimeout: defaultStreamTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sharedRand draws from the math/rand/v2 top-level source, which is safe for
// concurrent use.
type sharedRand struct{}

func (sharedRand) IntN(n int) int { return rand.IntN(n) }

// DeltaFunc receives each streamed chunk as it arrives. Returning an error
// aborts the turn.
type DeltaFunc func(chunk string) error

// DisplayMessage is a conversation turn as shown to the user, with marker
// content removed from assistant turns.
type DisplayMessage struct {
	Role domain.Role
	Text string
}

func displayMessages(conv domain.Conversation) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(conv))
	for _, m := range conv {
		text := m.Text()
		if m.Role == domain.RoleAssistant {
			text = coaching.DisplayText(text)
		}
		out = append(out, DisplayMessage{Role: m.Role, Text: text})
	}
	return out
}

// streamTurn sends req to the chat backend and returns the complete reply.
// The turn is bounded by the stream timeout and stops as soon as ctx is done.
func (s *Service) streamTurn(ctx context.Context, req domain.ChatRequest, onDelta DeltaFunc) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.streamTimeout)
	defer cancel()

	log := observability.LoggerFromContext(ctx)
	started := s.now()

	var b strings.Builder
	for chunk, err := range s.chat.StreamReply(ctx, req) {
		if err != nil {
			log.Warn("chat stream failed", zap.Int("received_len", b.Len()), zap.Error(err))
			return "", fmt.Errorf("%w: %w", domain.ErrBackend, err)
		}
		b.WriteString(chunk)
		if onDelta != nil {
			if err := onDelta(chunk); err != nil {
				return "", fmt.Errorf("deliver chunk: %w", err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrBackend, err)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty reply", domain.ErrBackend)
	}

	log.Info("chat turn streamed",
		zap.Int("reply_len", b.Len()),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	return b.String(), nil
}

func invalidTransition(op string, phase any) error {
	return fmt.Errorf("%s in phase %v: %w", op, phase, domain.ErrInvalidTransition)
}

func isUserError(err error) bool {
	return errors.Is(err, domain.ErrEmptyInput) || errors.Is(err, domain.ErrCrisisDetected)
}
