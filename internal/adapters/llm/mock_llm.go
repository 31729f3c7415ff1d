package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/domain"
)

// MockLLM is a scripted ChatBackend for local runs and tests. Onboarding
// replies confirm a principle on the third user turn; coaching replies always
// end with three commitment options.
type MockLLM struct {
	chunkSize int
}

func NewMockLLM() *MockLLM {
	return &MockLLM{chunkSize: 16}
}

// StreamReply implements domain.ChatBackend.
func (m *MockLLM) StreamReply(ctx context.Context, req domain.ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		reply := m.reply(req)
		for len(reply) > 0 {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			n := min(m.chunkSize, len(reply))
			if !yield(reply[:n], nil) {
				return
			}
			reply = reply[n:]
		}
	}
}

func (m *MockLLM) reply(req domain.ChatRequest) string {
	turns := req.Messages.TextsBy(domain.RoleUser)
	last := ""
	if len(turns) > 0 {
		last = turns[len(turns)-1]
	}

	if strings.Contains(req.SystemPrompt, coaching.CommitmentMarker) {
		return fmt.Sprintf("You said: %q. That moment is the one to work with.\n\n%s\n1. Write down the one sentence you want to say\n2. Say it out loud once before the next meeting\n3. Send a short follow-up message today",
			last, coaching.CommitmentMarker)
	}

	switch len(turns) {
	case 0, 1:
		return "That sounds like it stuck with you. What do you wish you'd said or done instead?"
	case 2:
		return "Here's what I hear: \"I speak up for my team, even when it feels risky.\" Sound right?"
	default:
		return coaching.PrincipleMarker + " I speak up for my team, even when it feels risky."
	}
}
