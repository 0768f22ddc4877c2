// Package zgerrors holds the sentinel errors shared across the agent's
// packages, following the flat sentinel-error style of the coordinator
// package this agent is modeled on.
package zgerrors

import "errors"

var (
	// ErrCapabilityMissing is returned when a required capability has no
	// registered provider at startup.
	ErrCapabilityMissing = errors.New("zgres: required capability has no provider")
	// ErrCapabilityTaken is returned when a single-arity capability already
	// has a registered provider.
	ErrCapabilityTaken = errors.New("zgres: capability already has a single provider")
	// ErrInvariantViolation marks a condition the agent considers fatal:
	// the supervisor should restart the process (spec.md §7 category 5,
	// e.g. set_dbid failing while holding its lock).
	ErrInvariantViolation = errors.New("zgres: invariant violation")
)
