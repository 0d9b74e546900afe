package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTransaction is returned when a purchase already exists for a
	// transaction id that slipped past event deduplication (replay, bypass).
	ErrDuplicateTransaction = errors.New("purchase already exists for transaction")
	// ErrMalformedPayload is returned when a webhook body is not a JSON object.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrRepositoryWrite wraps storage failures during reconciliation.
	ErrRepositoryWrite = errors.New("repository write failed")
	// ErrRemoteLookup is returned by customer lookups on transport errors or
	// non-success responses. The pipeline treats it as missing data.
	ErrRemoteLookup = errors.New("remote customer lookup failed")
	// ErrListenerFailed is returned when at least one listener failed.
	ErrListenerFailed = errors.New("event listener failed")
	// ErrEventNotFound is returned when reprocessing an unknown event id.
	ErrEventNotFound = errors.New("webhook event not found")
	// ErrNotReconcilable is returned when reprocessing an event type that
	// carries no transaction.
	ErrNotReconcilable = errors.New("webhook event type is not reconcilable")
)

// ListenerError names the listener that failed.
type ListenerError struct {
	Listener string
	Err      error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s: %v", e.Listener, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
