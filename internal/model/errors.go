// Package model provides data models for the reconciliation tool.
package model

import (
	"errors"
	"fmt"
)

// ErrHostTimeout is reported for hosts whose query was cancelled before completion.
var ErrHostTimeout = errors.New("host query timed out")

// HostQueryError describes a failed remote inspection of a host.
// Hosts with this error are excluded from reconciliation.
type HostQueryError struct {
	Host     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *HostQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query on host %s failed (exit %d): %v", e.Host, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("query on host %s failed (exit %d): %s", e.Host, e.ExitCode, e.Stderr)
}

func (e *HostQueryError) Unwrap() error { return e.Err }

// LabelDecodeError is returned when a domain label has no hexadecimal suffix.
type LabelDecodeError struct {
	Host  string
	Label string
	Err   error
}

func (e *LabelDecodeError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("cannot decode label %q on host %s: %v", e.Label, e.Host, e.Err)
	}
	return fmt.Sprintf("cannot decode label %q: %v", e.Label, e.Err)
}

func (e *LabelDecodeError) Unwrap() error { return e.Err }

// RemediationError describes a destroy/undefine command that did not succeed.
type RemediationError struct {
	Host     string
	Label    string
	Action   Action
	ExitCode int
	Err      error
}

func (e *RemediationError) Error() string {
	return fmt.Sprintf("%s of %s on host %s failed (exit %d): %v", e.Action, e.Label, e.Host, e.ExitCode, e.Err)
}

func (e *RemediationError) Unwrap() error { return e.Err }

// InventoryFetchError means the control-plane inventory could not be retrieved.
// It is fatal for the run.
type InventoryFetchError struct {
	What string // "hosts" or "instances"
	Err  error
}

func (e *InventoryFetchError) Error() string {
	return fmt.Sprintf("failed to fetch control-plane %s: %v", e.What, e.Err)
}

func (e *InventoryFetchError) Unwrap() error { return e.Err }
