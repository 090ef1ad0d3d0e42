package media

import "errors"

var (
	ErrMediaNotFound     = errors.New("media item not found")
	ErrNotClaimable      = errors.New("media item is not pending or retrying")
	ErrInvalidTransition = errors.New("media item cannot move to the requested status")
	ErrParentNotFound    = errors.New("property not found")
	ErrInvalidMediaSpec  = errors.New("invalid media spec")
	ErrSourceUnavailable = errors.New("source no longer available")
	ErrEmptyBatch        = errors.New("no media to submit")
)
