package services

import (
	"errors"
	"fmt"

	"apiworkbench/store"
)

// NotFoundError reports a referenced resource that does not exist.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s with id %d not found", e.Resource, e.ID)
}

// InvalidOperationError rejects a structurally invalid change, such as a
// folder move that would create a cycle.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string { return e.Reason }

func invalidOperation(format string, args ...any) error {
	return &InvalidOperationError{Reason: fmt.Sprintf(format, args...)}
}

// ExecutionKind classifies why an outbound request produced no response.
type ExecutionKind string

const (
	ExecutionTimeout      ExecutionKind = "timeout"
	ExecutionNetworkError ExecutionKind = "network_error"
	ExecutionInvalidURL   ExecutionKind = "invalid_url"
	ExecutionUnknown      ExecutionKind = "unknown"
)

// ExecutionError is returned by Execute when no response was obtained.
type ExecutionError struct {
	Kind    ExecutionKind
	Message string
	Details string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// translate maps store.ErrNotFound to a NotFoundError for resource/id and
// wraps everything else.
func translate(err error, resource string, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return fmt.Errorf("failed to load %s %d: %w", resource, id, err)
}

func isStoreNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
