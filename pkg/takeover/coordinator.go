// Package takeover implements the Master Lock Coordinator and Takeover
// Engine of spec.md §4.5: it reacts to master-lock ownership changes,
// drives DB role transitions, and races for the master lock when it is
// vacant and this node is eligible.
package takeover

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/pkg/dbctl"
	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/document"
	"github.com/viki00/zgres/pkg/publisher"
)

var log = logger.GetLogger("Deadman", "Takeover")

// WillingnessMinAge is the hard-coded 600-second "age gate" from
// spec.md §9: a replica must have been willing for at least this long
// before it is eligible to race for the master lock.
const WillingnessMinAge = 600 * time.Second

// Callbacks is the narrow surface the Coordinator calls back into the
// agent with, per the "cyclic reference" design note (spec.md §9):
// plugins/components see only what they need, not the whole agent.
type Callbacks interface {
	Restart(ticks int)
}

// Ranker orders willing replicas best-first; only the node ranked first
// races for the master lock (spec.md §4.5 step 4, the best_replicas
// capability).
type Ranker interface {
	Rank(candidates []dcs.PeerState) []dcs.PeerState
}

// Coordinator implements the state machine of spec.md §4.5.
type Coordinator struct {
	nodeID    string
	tickTime  time.Duration
	adapter   dcs.Adapter
	db        dbctl.Controller
	publisher *publisher.Publisher
	healthy   func() bool
	ranker    Ranker
	callbacks Callbacks
	now       func() time.Time

	mutex           sync.Mutex
	lockOwner       string
	sawSelfAsOwner  bool
	unhealthyActive atomic.Bool
}

// Config bundles the Coordinator's collaborators.
type Config struct {
	NodeID    string
	TickTime  time.Duration
	Adapter   dcs.Adapter
	DB        dbctl.Controller
	Publisher *publisher.Publisher
	// Healthy reports whether the Health Tracker currently has zero
	// active problems.
	Healthy   func() bool
	Ranker    Ranker
	Callbacks Callbacks
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		nodeID:    cfg.NodeID,
		tickTime:  cfg.TickTime,
		adapter:   cfg.Adapter,
		db:        cfg.DB,
		publisher: cfg.Publisher,
		healthy:   cfg.Healthy,
		ranker:    cfg.Ranker,
		callbacks: cfg.Callbacks,
		now:       time.Now,
	}
}

// LockOwner returns the last-observed master lock owner ("" if vacant).
func (c *Coordinator) LockOwner() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lockOwner
}

// sleep blocks for the given number of ticks, scaled by tick_time.
func (c *Coordinator) sleep(ticks int) {
	time.Sleep(time.Duration(ticks) * c.tickTime)
}

// OnMasterLockChanged is the DCS watch callback for master-lock
// ownership changes (spec.md §4.5 "On lock-owner change").
func (c *Coordinator) OnMasterLockChanged(ctx context.Context, owner string) {
	c.mutex.Lock()
	c.lockOwner = owner
	duplicateClaim := owner == c.nodeID && c.sawSelfAsOwner
	c.sawSelfAsOwner = owner == c.nodeID
	c.mutex.Unlock()

	if duplicateClaim {
		// spec.md §8 scenario 6: a second, distinct process reported the
		// same my_id claiming the master lock. We still accept the
		// state change; only the ID collision is flagged.
		log.Error("second master lock acquisition observed for this node id; check for a duplicate my_id",
			logger.String("node_id", c.nodeID))
	}

	switch owner {
	case c.nodeID:
		c.becomeMaster(ctx)
	case "":
		log.Info("master lock is vacant, scheduling a takeover attempt")
		go c.attemptTakeover(ctx)
	default:
		c.handlePeerOwnsLock(ctx)
	}
}

// becomeMaster implements spec.md §4.5's "owner == self" branch: stop
// replication if needed, bump the timeline, publish the new role.
func (c *Coordinator) becomeMaster(ctx context.Context) {
	role, err := c.db.ReplicationRole(ctx)
	if err != nil {
		log.Error("could not read replication role after winning master lock", logger.Error(err))
		c.callbacks.Restart(10)
		return
	}
	if role != dbctl.RoleReplica {
		return
	}
	if err := c.db.StopReplication(ctx); err != nil {
		log.Error("failed to stop replication while becoming master", logger.Error(err))
		c.callbacks.Restart(10)
		return
	}
	newRole, err := c.db.ReplicationRole(ctx)
	if err != nil || newRole != dbctl.RoleMaster {
		log.Error("database did not become master after stopping replication", logger.Error(err))
		c.callbacks.Restart(10)
		return
	}
	timeline, err := c.db.GetTimeline(ctx)
	if err != nil {
		log.Error("failed to read local timeline", logger.Error(err))
		c.callbacks.Restart(10)
		return
	}
	newTimeline := timeline + 1
	if err := c.adapter.SetTimeline(ctx, newTimeline); err != nil {
		log.Error("failed to publish new timeline", logger.Error(err))
		c.callbacks.Restart(10)
		return
	}
	if err := c.publisher.Update(ctx, document.Document{"replication_role": dbctl.RoleMaster.String()}); err != nil {
		log.Warn("failed to publish master role", logger.Error(err))
	}
	log.Info("became master", logger.Int64("timeline", newTimeline))
}

// handlePeerOwnsLock implements spec.md §4.5's "owner != self" branch:
// the split-brain guard.
func (c *Coordinator) handlePeerOwnsLock(ctx context.Context) {
	role, err := c.db.ReplicationRole(ctx)
	if err != nil {
		log.Warn("could not read replication role", logger.Error(err))
		return
	}
	if role == dbctl.RoleMaster {
		log.Error("another node holds the master lock while I am running as master, restarting to avoid split brain")
		c.callbacks.Restart(10)
	}
}

// attemptTakeover implements spec.md §4.5's _try_takeover.
func (c *Coordinator) attemptTakeover(ctx context.Context) {
	log.Info("sleeping to let peers refresh willingness before racing for the master lock")
	c.sleep(3)

	if c.LockOwner() != "" {
		log.Info("a new master appeared, abandoning takeover attempt")
		return
	}

	states, err := c.adapter.ListState(ctx)
	if err != nil {
		log.Warn("failed to list peer state during takeover attempt", logger.Error(err))
		return
	}
	eligible := EligibleWillingReplicas(states, c.now())
	best := c.ranker.Rank(eligible)

	amBest := len(best) > 0 && best[0].NodeID == c.nodeID
	if !amBest {
		log.Info("not among the best replicas, giving others a chance", logger.Int("candidates", len(best)))
		go c.attemptTakeover(ctx)
		return
	}

	// Re-check own willingness after recomputing ranking.
	if err := c.publisher.Update(ctx, document.Document{}); err != nil {
		log.Warn("failed to recompute local state before locking", logger.Error(err))
	}
	if c.publisher.State()["willing"] == nil {
		log.Info("lost willingness on recheck, abstaining from this takeover attempt")
		return
	}

	log.Info("attempting to acquire the master lock")
	ok, err := c.adapter.Lock(ctx, "master")
	if err != nil {
		log.Warn("error attempting to acquire the master lock", logger.Error(err))
		return
	}
	if !ok {
		log.Info("another node won the master lock race")
	}
	// On success, the DCS watch fires OnMasterLockChanged(self) and
	// becomeMaster takes it from there.
}

// EligibleWillingReplicas filters peer states down to those willing for
// at least WillingnessMinAge (spec.md §4.5 step 3, the "age gate").
func EligibleWillingReplicas(states []dcs.PeerState, now time.Time) []dcs.PeerState {
	var out []dcs.PeerState
	for _, s := range states {
		raw, ok := s.State["willing"]
		if !ok {
			continue
		}
		seconds, ok := toFloat(raw)
		if !ok {
			continue
		}
		willingSince := time.Unix(0, int64(seconds*float64(time.Second)))
		if willingSince.Add(WillingnessMinAge).Before(now) {
			out = append(out, s)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// HandleUnhealthyMaster implements spec.md §4.5's unhealthy-master
// handler: serialized by a single-holder guard, concurrent invocations
// are no-ops.
func (c *Coordinator) HandleUnhealthyMaster(ctx context.Context) {
	if !c.unhealthyActive.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.unhealthyActive.Store(false)
		for !c.healthy() {
			states, err := c.adapter.ListState(ctx)
			if err != nil {
				log.Warn("failed to list peer state in unhealthy-master handler", logger.Error(err))
			} else if len(EligibleWillingReplicas(states, c.now())) > 0 {
				log.Info("willing replica available, relinquishing the master lock")
				c.callbacks.Restart(120)
				return
			}
			c.sleep(30)
		}
	}()
}
