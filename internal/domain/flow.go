package domain

import (
	"context"
	"time"
)

// Flow is an in-progress onboarding or coaching interaction. State is one of
// the phase-machine values and is replaced wholesale on every transition.
type Flow[S any] struct {
	ID        FlowID
	Owner     UserID
	State     S
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FlowStore keeps live flows. Flows are ephemeral: losing them discards
// the unsaved interaction.
type FlowStore[S any] interface {
	CreateFlow(ctx context.Context, f *Flow[S]) error
	// GetFlow returns ErrNotFound for unknown ids and for flows owned by
	// someone else.
	GetFlow(ctx context.Context, owner UserID, id FlowID) (*Flow[S], error)
	UpdateFlow(ctx context.Context, owner UserID, id FlowID, state S, at time.Time) error
	// AcquireFlow marks the flow busy until release is called. A second
	// acquire before release returns ErrBusy.
	AcquireFlow(ctx context.Context, owner UserID, id FlowID) (release func(), err error)
}
