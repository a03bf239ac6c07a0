package domain

import "errors"

// Error kinds surfaced by the store and the generation pipeline. The API
// layer maps these onto HTTP statuses; everything else wraps transport
// errors from the capability boundary.
var (
	// ErrNotFound reports a mutation targeting an unknown conversation.
	ErrNotFound = errors.New("not found")

	// ErrEmptyResponse reports a model reply with neither content nor tool calls.
	ErrEmptyResponse = errors.New("generation returned empty response")

	// ErrToolLoopExceeded reports an exchange that kept emitting tool calls
	// past the configured round cap.
	ErrToolLoopExceeded = errors.New("tool call loop exceeded maximum rounds")

	// ErrMalformedGeneration reports a poem reply that failed structured
	// extraction. Nothing is committed when it occurs.
	ErrMalformedGeneration = errors.New("malformed generation output")
)
