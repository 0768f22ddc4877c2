// Package bootstrap implements the Bootstrap Controller of spec.md §4.6:
// master bootstrap (first node to claim an empty cluster), replica
// bootstrap (joining an existing one), and the steady-state initialize
// sequence entered on every agent start. Grounded on deadman.py's
// master_bootstrap, replica_bootstrap, and initialize.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/pkg/dbctl"
	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/zgerrors"
)

var log = logger.GetLogger("Deadman", "Bootstrap")

// FatalError signals that the agent must not retry: the condition is an
// invariant violation rather than a transient failure (spec.md §4.6's
// "fatal assertion" and "error code 5" outcomes).
type FatalError struct {
	Code int
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("bootstrap: fatal (exit %d): %v", e.Code, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Outcome reports what the caller (the agent loop) should do next.
type Outcome struct {
	// RetryTicks, if > 0, means the caller should restart(RetryTicks).
	RetryTicks int
	// Restart, with RetryTicks == 0, means restart(0): re-enter
	// immediately rather than proceed into the steady-state loop.
	Restart bool
}

// Controller implements the Bootstrap Controller. The callback fields
// are populated by the agent wiring code; they reach into capabilities
// (monitors, watches, conn-info) that bootstrap itself has no business
// owning.
type Controller struct {
	nodeID  string
	db      dbctl.Controller
	adapter dcs.Adapter

	// StartMonitors starts the health-monitor capability providers.
	StartMonitors func(ctx context.Context) error
	// InstallWatches installs the DCS watch callbacks (master lock,
	// peer state, peer conn-info).
	InstallWatches func(ctx context.Context) error
	// PublishConnInfo writes this node's connection-info document to
	// the DCS.
	PublishConnInfo func(ctx context.Context) error
	// ClearInitializing removes the reserved agent.initialize health
	// problem that suppresses state publication during bootstrap.
	ClearInitializing func()
	// PublishRole writes the resolved replication_role into the state
	// document (deadman.py:255's update_state(replication_role=...)).
	// Without this, a replica's "willing" timestamp can never be
	// derived (spec.md §3 invariant 1 requires role==replica).
	PublishRole func(ctx context.Context, role dbctl.Role) error
	// Healthy reports whether the health tracker currently has zero
	// active problems.
	Healthy func() bool
	// ScheduleUnhealthyMasterHandlerAfter arranges for the unhealthy
	// master handler to run once the given number of ticks have
	// elapsed.
	ScheduleUnhealthyMasterHandlerAfter func(ticks int)
}

// New creates a Controller.
func New(nodeID string, db dbctl.Controller, adapter dcs.Adapter) *Controller {
	return &Controller{nodeID: nodeID, db: db, adapter: adapter}
}

// MasterBootstrap implements spec.md §4.6's master-bootstrap sequence,
// entered when no database identifier is yet recorded in the DCS.
func (c *Controller) MasterBootstrap(ctx context.Context) (Outcome, error) {
	if err := c.db.InitDB(ctx); err != nil {
		return Outcome{}, fmt.Errorf("master bootstrap: initdb: %w", err)
	}
	if err := c.db.Start(ctx); err != nil {
		return Outcome{}, fmt.Errorf("master bootstrap: start: %w", err)
	}
	localID, err := c.db.GetDatabaseIdentifier(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("master bootstrap: read local database identifier: %w", err)
	}

	acquired, err := c.adapter.Lock(ctx, "database_identifier")
	if err != nil {
		return Outcome{}, fmt.Errorf("master bootstrap: lock database_identifier: %w", err)
	}
	if !acquired {
		log.Info("another node is already bootstrapping the cluster, retrying later")
		return Outcome{RetryTicks: 5}, nil
	}
	defer func() {
		if err := c.adapter.Unlock(ctx, "database_identifier"); err != nil {
			log.Warn("failed to release database_identifier lock", logger.Error(err))
		}
	}()

	if dbid, ok, err := c.adapter.GetDBID(ctx); err != nil {
		return Outcome{}, fmt.Errorf("master bootstrap: re-check database identifier: %w", err)
	} else if ok && dbid != "" {
		log.Info("a database identifier appeared while bootstrapping, restarting to join as a replica")
		return Outcome{Restart: true}, nil
	}

	if err := c.db.Backup(ctx); err != nil {
		return Outcome{}, &FatalError{Code: 1, Err: fmt.Errorf("initial backup failed: %w", err)}
	}
	set, err := c.adapter.SetDBID(ctx, localID)
	if err != nil {
		return Outcome{}, &FatalError{Code: 1, Err: fmt.Errorf("could not publish database identifier: %w", err)}
	}
	if !set {
		// We hold the database_identifier lock and just re-checked that
		// no dbid is recorded; SetDBID refusing anyway is the "invariant
		// violation" category of spec.md §7.5, not a transient failure.
		return Outcome{}, &FatalError{Code: 1, Err: fmt.Errorf("%w: database identifier was already set while holding its lock", zgerrors.ErrInvariantViolation)}
	}
	log.Info("master bootstrap complete", logger.String("database_identifier", localID))
	return Outcome{Restart: true}, nil
}

// ReplicaBootstrap implements spec.md §4.6's replica-bootstrap sequence,
// entered when the local database identifier does not match the DCS's.
func (c *Controller) ReplicaBootstrap(ctx context.Context, primaryConnInfo map[string]string) (Outcome, error) {
	if err := c.db.Stop(ctx); err != nil {
		log.Warn("stop before replica bootstrap failed, continuing", logger.Error(err))
	}
	if err := c.db.InitDB(ctx); err != nil {
		return Outcome{}, fmt.Errorf("replica bootstrap: initdb: %w", err)
	}
	if err := c.db.Restore(ctx); err != nil {
		if resetErr := c.db.Reset(ctx); resetErr != nil {
			log.Error("reset after failed restore also failed", logger.Error(resetErr))
		}
		return Outcome{}, fmt.Errorf("replica bootstrap: restore failed, database reset: %w", err)
	}
	if err := c.db.SetupReplication(ctx, primaryConnInfo); err != nil {
		return Outcome{}, fmt.Errorf("replica bootstrap: setup_replication: %w", err)
	}

	role, err := c.db.ReplicationRole(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("replica bootstrap: read replication role: %w", err)
	}
	localID, err := c.db.GetDatabaseIdentifier(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("replica bootstrap: read local database identifier: %w", err)
	}
	dcsID, _, err := c.adapter.GetDBID(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("replica bootstrap: read DCS database identifier: %w", err)
	}

	if role != dbctl.RoleReplica || localID != dcsID {
		if resetErr := c.db.Reset(ctx); resetErr != nil {
			log.Error("reset after failed replica verification also failed", logger.Error(resetErr))
		}
		return Outcome{}, &FatalError{Code: 5, Err: errors.New("replica did not come up matching the cluster database identifier")}
	}
	log.Info("replica bootstrap complete", logger.String("database_identifier", localID))
	return Outcome{}, nil
}

// Initialize implements spec.md §4.6's steady-state initialize sequence,
// entered on every agent start. It dispatches into MasterBootstrap or
// ReplicaBootstrap when the local and DCS database identifiers disagree.
func (c *Controller) Initialize(ctx context.Context) (Outcome, error) {
	if c.StartMonitors == nil || c.InstallWatches == nil || c.PublishConnInfo == nil || c.ClearInitializing == nil || c.Healthy == nil {
		return Outcome{}, errors.New("bootstrap: controller is missing required callbacks")
	}

	if err := c.StartMonitors(ctx); err != nil {
		return Outcome{}, fmt.Errorf("initialize: start monitors: %w", err)
	}

	dcsID, dcsIDSet, err := c.adapter.GetDBID(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("initialize: read DCS database identifier: %w", err)
	}
	if !dcsIDSet || dcsID == "" {
		return c.MasterBootstrap(ctx)
	}

	localID, err := c.db.GetDatabaseIdentifier(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("initialize: read local database identifier: %w", err)
	}
	if localID != dcsID {
		return c.ReplicaBootstrap(ctx, nil)
	}

	role, err := c.db.ReplicationRole(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("initialize: read replication role: %w", err)
	}

	if role == dbctl.RoleMaster {
		acquired, err := c.adapter.Lock(ctx, "master")
		if err != nil {
			return Outcome{}, fmt.Errorf("initialize: acquire master lock: %w", err)
		}
		if !acquired {
			if err := c.db.Stop(ctx); err != nil {
				log.Warn("stop while unable to confirm the master lock failed, continuing", logger.Error(err))
			}
			localTimeline, err := c.db.GetTimeline(ctx)
			if err != nil {
				return Outcome{}, fmt.Errorf("initialize: read local timeline: %w", err)
			}
			dcsTimeline, err := c.adapter.GetTimeline(ctx)
			if err != nil {
				return Outcome{}, fmt.Errorf("initialize: read DCS timeline: %w", err)
			}
			if dcsTimeline > localTimeline {
				log.Error("a newer master exists, resetting local database")
				if resetErr := c.db.Reset(ctx); resetErr != nil {
					log.Error("reset after stale timeline also failed", logger.Error(resetErr))
				}
				return Outcome{}, &FatalError{Code: 1, Err: errors.New("local database is behind a newer master's timeline")}
			}
			return Outcome{RetryTicks: 5}, nil
		}
	}

	if err := c.db.Start(ctx); err != nil {
		return Outcome{}, fmt.Errorf("initialize: start: %w", err)
	}
	if err := c.InstallWatches(ctx); err != nil {
		return Outcome{}, fmt.Errorf("initialize: install watches: %w", err)
	}
	if err := c.PublishConnInfo(ctx); err != nil {
		return Outcome{}, fmt.Errorf("initialize: publish conn-info: %w", err)
	}
	if c.PublishRole != nil {
		if err := c.PublishRole(ctx, role); err != nil {
			return Outcome{}, fmt.Errorf("initialize: publish replication role: %w", err)
		}
	}
	c.ClearInitializing()

	if role == dbctl.RoleMaster && !c.Healthy() && c.ScheduleUnhealthyMasterHandlerAfter != nil {
		c.ScheduleUnhealthyMasterHandlerAfter(300)
	}

	return Outcome{}, nil
}
