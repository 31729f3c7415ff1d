package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/ledger/internal/adapters/storage/memory"
	"github.com/PabloGalante/ledger/internal/domain"
)

func TestFlowStoreOwnership(t *testing.T) {
	ctx := context.Background()
	s := memory.NewFlowStore[string]()
	now := time.Now()

	require.NoError(t, s.CreateFlow(ctx, &domain.Flow[string]{ID: "f-1", Owner: "u-1", State: "start", CreatedAt: now, UpdatedAt: now}))
	assert.ErrorIs(t, s.CreateFlow(ctx, &domain.Flow[string]{ID: "f-1", Owner: "u-1"}), domain.ErrAlreadyExists)

	f, err := s.GetFlow(ctx, "u-1", "f-1")
	require.NoError(t, err)
	assert.Equal(t, "start", f.State)

	_, err = s.GetFlow(ctx, "u-2", "f-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.UpdateFlow(ctx, "u-2", "f-1", "stolen", now), domain.ErrNotFound)

	require.NoError(t, s.UpdateFlow(ctx, "u-1", "f-1", "next", now.Add(time.Second)))
	f, err = s.GetFlow(ctx, "u-1", "f-1")
	require.NoError(t, err)
	assert.Equal(t, "next", f.State)
}

func TestFlowStoreAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := memory.NewFlowStore[int]()
	require.NoError(t, s.CreateFlow(ctx, &domain.Flow[int]{ID: "f-1", Owner: "u-1"}))

	release, err := s.AcquireFlow(ctx, "u-1", "f-1")
	require.NoError(t, err)

	_, err = s.AcquireFlow(ctx, "u-1", "f-1")
	assert.ErrorIs(t, err, domain.ErrBusy)

	release()
	release() // idempotent

	release, err = s.AcquireFlow(ctx, "u-1", "f-1")
	require.NoError(t, err)
	release()

	_, err = s.AcquireFlow(ctx, "u-2", "f-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlowStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := memory.NewFlowStore[int]()
	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now()

	require.NoError(t, s.CreateFlow(ctx, &domain.Flow[int]{ID: "old", Owner: "u", UpdatedAt: old}))
	require.NoError(t, s.CreateFlow(ctx, &domain.Flow[int]{ID: "busy", Owner: "u", UpdatedAt: old}))
	require.NoError(t, s.CreateFlow(ctx, &domain.Flow[int]{ID: "fresh", Owner: "u", UpdatedAt: fresh}))

	release, err := s.AcquireFlow(ctx, "u", "busy")
	require.NoError(t, err)
	defer release()

	assert.Equal(t, 1, s.Sweep(time.Now().Add(-time.Hour)))

	_, err = s.GetFlow(ctx, "u", "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetFlow(ctx, "u", "busy")
	assert.NoError(t, err)
	_, err = s.GetFlow(ctx, "u", "fresh")
	assert.NoError(t, err)
}
