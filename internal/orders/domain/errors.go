package domain

import "errors"

var (
	// ErrInsufficientStock indicates a stock decrement would drive a variant
	// below zero; the surrounding transaction must roll back.
	ErrInsufficientStock = errors.New("insufficient variant stock")

	// ErrNoTransition indicates a conditional status update matched no rows
	// because the order already moved past the expected source status.
	// Callers treat this as a concurrent-writer success, not a failure.
	ErrNoTransition = errors.New("status did not transition")
)
