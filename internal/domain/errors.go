package domain

import "errors"

// Sentinel errors for the domain error taxonomy. Handlers map these onto
// HTTP status codes; everything else inside the engine wraps with %w so the
// category survives the trip up the stack.
var (
	// ErrInvalidInputs marks malformed or out-of-range domain inputs
	// (NaN/Inf market inputs, unknown enum values, bad request fields).
	ErrInvalidInputs = errors.New("invalid inputs")

	// ErrUnknownName marks a lookup of a strategy, table, playbook or
	// position that does not exist. Messages list valid alternatives.
	ErrUnknownName = errors.New("unknown name")

	// ErrNotSupported marks a capability the active provider does not
	// implement.
	ErrNotSupported = errors.New("not supported")

	// ErrProviderUnavailable marks exhaustion of the primary provider and
	// every fallback. The primary error is attached as the cause.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
