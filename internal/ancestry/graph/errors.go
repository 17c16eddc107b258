package graph

import "errors"

var (
	// ErrRootNotFound is returned with an empty graph when the root
	// transaction cannot be resolved.
	ErrRootNotFound = errors.New("root transaction not found")
	// ErrBudgetExceeded is returned when a traversal discovers more nodes than allowed.
	ErrBudgetExceeded = errors.New("node budget exceeded")
	// ErrInvalidDepth is returned for negative depths.
	ErrInvalidDepth = errors.New("depth must not be negative")
)
