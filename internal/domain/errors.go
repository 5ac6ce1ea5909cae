package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Data-integrity errors. Fatal to the analysis call that hits them;
	// paired collections must never be silently reordered or truncated.
	ErrPairCountMismatch = errors.New("paired collections have mismatched counts")
	ErrPairTimeMismatch  = errors.New("paired snapshots have mismatched request times")
	ErrUnorderedSequence = errors.New("snapshot sequence is not in request-time order")

	// Configuration errors. Fatal at session start.
	ErrZeroInitialBalance = errors.New("initial balance is zero")
	ErrInvalidThreshold   = errors.New("invalid trade threshold")

	ErrUnknownExchange = errors.New("unknown exchange")
	ErrSessionTerminal = errors.New("session already settled")
	ErrSessionHeld     = errors.New("session held by another process")
)
