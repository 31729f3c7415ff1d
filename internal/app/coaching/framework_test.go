package coaching_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/domain"
)

func TestFrameworksRotation(t *testing.T) {
	fws := coaching.Frameworks()
	require.Len(t, fws, 7)

	seen := map[domain.FrameworkID]bool{}
	for _, f := range fws {
		assert.NotEmpty(t, f.Label)
		assert.NotEmpty(t, f.Instruction)
		assert.False(t, seen[f.ID], "duplicate id %s", f.ID)
		seen[f.ID] = true

		got, ok := coaching.FrameworkByID(f.ID)
		require.True(t, ok)
		assert.Equal(t, f, got)
	}

	_, ok := coaching.FrameworkByID("nope")
	assert.False(t, ok)
}

func TestPickFrameworkReachesEveryMember(t *testing.T) {
	pool := coaching.Frameworks()
	rnd := rand.New(rand.NewPCG(1, 2))

	counts := map[domain.FrameworkID]int{}
	for i := 0; i < 2000; i++ {
		f, err := coaching.PickFramework(pool, "", rnd)
		require.NoError(t, err)
		counts[f.ID]++
	}
	for _, f := range pool {
		assert.Positive(t, counts[f.ID], "framework %s never picked", f.ID)
	}
}

func TestPickFrameworkNeverReturnsExcluded(t *testing.T) {
	pool := coaching.Frameworks()
	rnd := rand.New(rand.NewPCG(7, 7))

	for i := 0; i < 1000; i++ {
		f, err := coaching.PickFramework(pool, coaching.FrameworkSocratic, rnd)
		require.NoError(t, err)
		assert.NotEqual(t, coaching.FrameworkSocratic, f.ID)
	}
}

func TestPickFrameworkIsDeterministicForSeed(t *testing.T) {
	pool := coaching.Frameworks()
	a := rand.New(rand.NewPCG(42, 0))
	b := rand.New(rand.NewPCG(42, 0))

	for i := 0; i < 20; i++ {
		fa, err := coaching.PickFramework(pool, "", a)
		require.NoError(t, err)
		fb, err := coaching.PickFramework(pool, "", b)
		require.NoError(t, err)
		assert.Equal(t, fa.ID, fb.ID)
	}
}

func TestPickFrameworkDoesNotMutatePool(t *testing.T) {
	pool := coaching.Frameworks()
	before := coaching.Frameworks()

	_, err := coaching.PickFramework(pool, coaching.FrameworkStory, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)

	if diff := cmp.Diff(before, pool); diff != "" {
		t.Fatalf("pool changed (-want +got):\n%s", diff)
	}
}

func TestPickFrameworkEmptyPool(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 1))

	_, err := coaching.PickFramework(nil, "", rnd)
	assert.ErrorIs(t, err, domain.ErrEmptyPool)

	only := []domain.Framework{{ID: "solo", Label: "Solo"}}
	_, err = coaching.PickFramework(only, "solo", rnd)
	assert.ErrorIs(t, err, domain.ErrEmptyPool)
}
