// services/errors.go
package services

import "errors"

// Input errors: returned to the caller synchronously, never retried.
var (
	ErrSponsorNotFound      = errors.New("sponsor not found or inactive")
	ErrNodeNotFound         = errors.New("member not found")
	ErrSourceMemberNotFound = errors.New("source member not found")
	ErrAlreadyPlaced        = errors.New("member is already placed in the tree")
	ErrSlotOccupied         = errors.New("target slot is already occupied")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidStrategy      = errors.New("unknown placement strategy")
)

// Structural errors: data corruption or a genuinely full subtree; surfaced
// to an operator, not silently recovered.
var (
	ErrDepthExceeded = errors.New("no empty slot found within the depth bound")
	ErrCycleDetected = errors.New("cycle detected in tree structure")
)

// ErrCapacityExceeded is an expected, user-facing condition ("system full")
var ErrCapacityExceeded = errors.New("member capacity exceeded")

// ErrDuplicateEvent means the distribution already happened; callers should
// treat it as success-equivalent.
var ErrDuplicateEvent = errors.New("commission event already distributed")
