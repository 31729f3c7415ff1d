package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("sign-in required")
	ErrEmptyInput        = errors.New("input is empty")
	ErrCrisisDetected    = errors.New("crisis language detected")
	ErrInvalidTransition = errors.New("action not allowed in current phase")
	ErrBusy              = errors.New("another request for this flow is in progress")
	ErrEmptyPool         = errors.New("framework pool is empty")
	ErrInvalidWedge      = errors.New("unknown wedge label")
	ErrInvalidOption     = errors.New("not one of the offered commitment options")
	ErrInvalidRating     = errors.New("feedback must be 0 or 1")
	ErrInvalidFollowUp   = errors.New("follow-up status must be yes, partly or no")
	ErrFollowUpResolved  = errors.New("follow-up already recorded")
	ErrAlreadyExists     = errors.New("already exists")
	ErrBackend           = errors.New("chat backend failed")
)

