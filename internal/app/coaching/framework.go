package coaching

import (
	"fmt"

	"github.com/PabloGalante/ledger/internal/domain"
)

const (
	FrameworkBehavioral      domain.FrameworkID = "behavioral"
	FrameworkSocratic        domain.FrameworkID = "socratic"
	FrameworkVisualization   domain.FrameworkID = "visualization"
	FrameworkContrarian      domain.FrameworkID = "contrarian"
	FrameworkStakes          domain.FrameworkID = "stakes"
	FrameworkStory           domain.FrameworkID = "story"
	FrameworkMicroCommitment domain.FrameworkID = "micro_commitment"
)

var frameworks = []domain.Framework{
	{
		ID:          FrameworkBehavioral,
		Label:       "Behavioral",
		Instruction: "Give ONE concrete micro-action the user can take in the next 24 hours.",
	},
	{
		ID:          FrameworkSocratic,
		Label:       "Socratic",
		Instruction: "Ask TWO powerful questions the user should ask themselves before their next interaction.",
	},
	{
		ID:          FrameworkVisualization,
		Label:       "Visualization",
		Instruction: "Guide a brief mental rehearsal of how the user would handle this situation perfectly next time.",
	},
	{
		ID:          FrameworkContrarian,
		Label:       "Contrarian",
		Instruction: "Explain what the user's principle does NOT mean, to sharpen their understanding of it.",
	},
	{
		ID:          FrameworkStakes,
		Label:       "Stakes Framing",
		Instruction: "Clarify what is actually at risk if the user does not follow their principle in this situation.",
	},
	{
		ID:          FrameworkStory,
		Label:       "Story/Analogy",
		Instruction: "Tell a brief third-person story or analogy that illustrates the user's principle in action.",
	},
	{
		ID:          FrameworkMicroCommitment,
		Label:       "Micro-Commitment",
		Instruction: "Suggest one tiny thing the user can do right now (under 2 minutes) that aligns with their principle.",
	},
}

// Frameworks returns a copy of the coaching rotation.
func Frameworks() []domain.Framework {
	out := make([]domain.Framework, len(frameworks))
	copy(out, frameworks)
	return out
}

// FrameworkByID looks up a framework in the coaching rotation.
func FrameworkByID(id domain.FrameworkID) (domain.Framework, bool) {
	for _, f := range frameworks {
		if f.ID == id {
			return f, true
		}
	}
	return domain.Framework{}, false
}

// RandSource is the randomness PickFramework draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

// PickFramework returns a uniformly random member of pool, never the one
// whose id equals exclude. An empty exclude excludes nothing. pool is not
// modified.
func PickFramework(pool []domain.Framework, exclude domain.FrameworkID, rnd RandSource) (domain.Framework, error) {
	candidates := make([]domain.Framework, 0, len(pool))
	for _, f := range pool {
		if exclude != "" && f.ID == exclude {
			continue
		}
		candidates = append(candidates, f)
	}
	if len(candidates) == 0 {
		return domain.Framework{}, fmt.Errorf("pick framework (exclude=%q): %w", exclude, domain.ErrEmptyPool)
	}
	return candidates[rnd.IntN(len(candidates))], nil
}
