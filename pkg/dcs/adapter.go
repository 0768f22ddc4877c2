// Package dcs defines the interface the agent core consumes for all
// distributed-coordination-service operations (spec.md §4.4). The DCS
// client itself is an external collaborator; this package only names
// the contract. See pkg/dcs/etcdadapter for a concrete implementation.
package dcs

import (
	"context"

	"github.com/viki00/zgres/pkg/document"
)

// SessionState mirrors the coordination session lifecycle the adapter
// must surface (spec.md §4.4's "session-state callbacks" row).
type SessionState int

const (
	// SessionConnected is the normal operating state.
	SessionConnected SessionState = iota
	// SessionSuspended means the session is temporarily unreachable; its
	// ephemeral keys are still held by the service but may expire.
	SessionSuspended
	// SessionLost means the session is irrecoverably gone; every
	// ephemeral key it owned has been (or will be) released.
	SessionLost
)

func (s SessionState) String() string {
	switch s {
	case SessionConnected:
		return "CONNECTED"
	case SessionSuspended:
		return "SUSPENDED"
	case SessionLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// PeerState is one entry returned by ListState: a peer's published state
// document keyed by its node id.
type PeerState struct {
	NodeID string
	State  document.Document
}

// Adapter is the DCS Client Adapter interface of spec.md §4.4. Every
// operation takes the calling agent's context; the adapter is expected
// to bind those calls to its own session internally.
type Adapter interface {
	// GetDBID reads the persistent, immutable database-identifier
	// record. Returns ("", false, nil) if unset.
	GetDBID(ctx context.Context) (string, bool, error)
	// SetDBID conditionally creates the database-identifier record.
	// Returns false, nil if a record already exists (invariant: dbid is
	// set exactly once).
	SetDBID(ctx context.Context, id string) (bool, error)

	// GetTimeline reads the current cluster timeline.
	GetTimeline(ctx context.Context) (int64, error)
	// SetTimeline updates the cluster timeline. Callers are responsible
	// for only ever increasing it.
	SetTimeline(ctx context.Context, n int64) error

	// Lock attempts to acquire the named exclusive, session-tied lock.
	// It returns immediately: true on success, false if already held by
	// another session.
	Lock(ctx context.Context, name string) (bool, error)
	// Unlock releases a lock this session holds. No-op if not held.
	Unlock(ctx context.Context, name string) error
	// LockOwner returns the current holder's identity, or "" if vacant.
	LockOwner(ctx context.Context, name string) (string, error)

	// SetState publishes this node's state document.
	SetState(ctx context.Context, doc document.Document) error
	// ListState enumerates every peer's published state within this
	// node's group.
	ListState(ctx context.Context) ([]PeerState, error)

	// SetConnInfo publishes this node's connection-info document.
	SetConnInfo(ctx context.Context, doc document.Document) error
	// DeleteConnInfo removes this node's connection-info document.
	DeleteConnInfo(ctx context.Context) error
	// ListConnInfo enumerates every peer's connection-info document.
	ListConnInfo(ctx context.Context) ([]PeerState, error)

	// Watch subscribes to master-lock ownership changes, peer state
	// changes, and peer conn-info changes. Callbacks are delivered
	// single-threaded with respect to the agent: the adapter must not
	// invoke two callbacks concurrently.
	Watch(ctx context.Context, onMasterLock func(owner string), onState func(PeerState), onConnInfo func(PeerState)) error

	// WatchSessionState subscribes to session lifecycle transitions
	// (spec.md §4.4's session-state callbacks).
	WatchSessionState(ctx context.Context, onChange func(SessionState)) error

	// Disconnect ends the session; every ephemeral key it owns must be
	// released as a result (lock, state, conn-info).
	Disconnect(ctx context.Context) error
}
