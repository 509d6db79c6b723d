package opa

import (
	"fmt"
)

// UnreachableError is returned by HealthCheck after all probe attempts
// failed with transport errors. It is distinct from SyncError so callers
// can tell "the engine is down" apart from "the engine rejected this call".
type UnreachableError struct {
	// Attempts is the number of probe attempts made.
	Attempts int
	// Err is the last underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *UnreachableError) Error() string {
	return fmt.Sprintf("opa server unreachable after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last underlying transport error.
func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// SyncError is returned when a data push, policy upload or evaluation call
// fails, either with a non-success status or a transport error. It carries
// the response status and body for diagnostics.
type SyncError struct {
	// Op names the failed operation, e.g. "push data" or "upload policy".
	Op string
	// Path is the engine path the call was made against.
	Path string
	// Status is the HTTP status code of the response, 0 on transport failure.
	Status int
	// Detail holds the response body of a non-success response.
	Detail string
	// Err is the underlying transport error, nil for status failures.
	Err error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("opa %s %s: %v", e.Op, e.Path, e.Err)
	}

	return fmt.Sprintf("opa %s %s: status %d: %s", e.Op, e.Path, e.Status, e.Detail)
}

// Unwrap returns the underlying transport error, if any.
func (e *SyncError) Unwrap() error {
	return e.Err
}
