package usecase

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnresolvable marks a record that cannot identify a canonical entity,
	// e.g. a placeholder team name. The record is skipped and counted.
	ErrUnresolvable = errors.New("record cannot be resolved to a canonical entity")
	// ErrReviewOnly is returned when a merge is requested for a detector whose
	// groups are only reported.
	ErrReviewOnly = errors.New("detector groups are review only")
	errStaleGroup = errors.New("group member no longer exists")
)
