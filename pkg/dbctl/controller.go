// Package dbctl defines the database-control contract of spec.md §6:
// the set of operations the core calls out to for process and role
// management. Only the contract is exercised by the core; pkg/dbctl/postgres
// provides a concrete implementation.
package dbctl

import "context"

// Role mirrors pg_replication_role()'s return values.
type Role int

const (
	// RoleNone means the database process is not running, or its role
	// cannot be determined.
	RoleNone Role = iota
	RoleMaster
	RoleReplica
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleReplica:
		return "replica"
	default:
		return "none"
	}
}

// Controller is the database-control contract of spec.md §6.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	InitDB(ctx context.Context) error
	// Reset makes the local database unusable: halt the instance so it
	// cannot run again by mistake (move the data directory aside, or
	// otherwise prevent accidental restart as a stale master).
	Reset(ctx context.Context) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context) error
	SetupReplication(ctx context.Context, primaryConnInfo map[string]string) error
	StopReplication(ctx context.Context) error
	Reload(ctx context.Context) error

	GetDatabaseIdentifier(ctx context.Context) (string, error)
	GetTimeline(ctx context.Context) (int64, error)
	ReplicationRole(ctx context.Context) (Role, error)
}
