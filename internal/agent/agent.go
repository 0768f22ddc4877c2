// Package agent implements the per-process App of spec.md §4.7 and §9:
// it owns the Agent Loop (initialize → run, restart/backoff, top-level
// error handling) and wires the Capability Registry's bound providers
// into the Health Tracker, State Publisher, Master Lock Coordinator,
// and Bootstrap Controller. Grounded on deadman.py's App.run/restart/
// _handle_exception and the teacher's runtime-lifecycle shape
// (app/storage's NewStorageRuntime, cmd/lind/storage.go's run(ctx,
// runtime, reload)).
package agent

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/config"
	"github.com/viki00/zgres/pkg/bootstrap"
	"github.com/viki00/zgres/pkg/capability"
	"github.com/viki00/zgres/pkg/connectinfo"
	"github.com/viki00/zgres/pkg/dbctl"
	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/document"
	"github.com/viki00/zgres/pkg/health"
	"github.com/viki00/zgres/pkg/publisher"
	"github.com/viki00/zgres/pkg/takeover"
)

var log = logger.GetLogger("Deadman", "Agent")

// Callbacks is the narrow surface capability providers (health monitors,
// takeover vetoes) call back into the agent with, per spec.md §9's
// "cyclic reference" design note: plugins see mark_healthy,
// mark_unhealthy, restart, and pg_connect_info, never the whole App.
type Callbacks interface {
	MarkHealthy(key string)
	MarkUnhealthy(key, reason string, canBeReplica bool)
	Restart(ticks int)
	ConnInfo() document.Document
}

// Monitor is what's registered under the capability.HealthMonitor
// capability: a background health check started with the narrow
// Callbacks surface it reports problems through.
type Monitor interface {
	Start(ctx context.Context, callbacks Callbacks) error
}

// NodeIdentityProvider is what's registered under capability.NodeIdentity:
// the external my_id source (spec.md §1's "node identity provider").
type NodeIdentityProvider interface {
	MyID(ctx context.Context) (string, error)
}

// VetoProvider is what's registered under capability.TakeoverVeto.
type VetoProvider interface {
	VetoTakeover(state document.Document) bool
}

// StateObserver is what's registered under capability.StateNotify: an
// extension point for things like the config-apply sibling tool
// (spec.md §1) that render peer state to local files.
type StateObserver interface {
	OnPeerState(ps dcs.PeerState)
}

// ConnInfoObserver is what's registered under capability.ConnInfoNotify.
type ConnInfoObserver interface {
	OnPeerConnInfo(ps dcs.PeerState)
}

// App is the per-process agent: constructed once, passed explicitly,
// with no process-wide mutable globals (spec.md §9's "Global singleton
// state" design note).
type App struct {
	cfg      *config.Agent
	nodeID   string
	tickTime time.Duration

	registry  *capability.Registry
	adapter   dcs.Adapter
	db        dbctl.Controller
	health    *health.Tracker
	publisher *publisher.Publisher
	takeover  *takeover.Coordinator
	bootstrap *bootstrap.Controller
	connInfo  document.Document

	monitors       []Monitor
	stateObservers []StateObserver
	connObservers  []ConnInfoObserver

	mutex       sync.Mutex
	ctx         context.Context
	exitCode    int
	restarting  bool
	suspendTick *time.Timer

	// sleep and exit are overridable for tests; the real agent uses
	// time.Sleep and os.Exit.
	sleep func(time.Duration)
	exit  func(int)
}

// New resolves the registry's bound providers and wires the
// Capability Registry, Health Tracker, State Publisher, Master Lock
// Coordinator, and Bootstrap Controller together.
func New(ctx context.Context, cfg *config.Agent, registry *capability.Registry) (*App, error) {
	if err := registry.CheckRequired(); err != nil {
		return nil, err
	}

	adapterProvider, _ := registry.Single(capability.DCSLock)
	adapter, ok := adapterProvider.Value.(dcs.Adapter)
	if !ok {
		return nil, fmt.Errorf("agent: %s provider %q does not implement dcs.Adapter", capability.DCSLock, adapterProvider.Name)
	}
	dbProvider, _ := registry.Single(capability.DBControl)
	db, ok := dbProvider.Value.(dbctl.Controller)
	if !ok {
		return nil, fmt.Errorf("agent: %s provider %q does not implement dbctl.Controller", capability.DBControl, dbProvider.Name)
	}
	identityProvider, _ := registry.Single(capability.NodeIdentity)
	identity, ok := identityProvider.Value.(NodeIdentityProvider)
	if !ok {
		return nil, fmt.Errorf("agent: %s provider %q does not implement NodeIdentityProvider", capability.NodeIdentity, identityProvider.Name)
	}
	rankerProvider, _ := registry.Single(capability.ReplicaRanker)
	ranker, ok := rankerProvider.Value.(takeover.Ranker)
	if !ok {
		return nil, fmt.Errorf("agent: %s provider %q does not implement takeover.Ranker", capability.ReplicaRanker, rankerProvider.Name)
	}

	nodeID, err := identity.MyID(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent: read node identity: %w", err)
	}

	tickTime := time.Duration(cfg.Deadman.TickTime)
	if tickTime <= 0 {
		tickTime = 2 * time.Second
	}

	tracker := health.NewTracker()
	pub := publisher.New(adapter, tracker.Problems)

	connInfo := mergeConnInfo(registry.Multiple(capability.ConnInfoSource))
	pub.SeedConnInfo(connInfo)

	var vetoes []publisher.VetoFunc
	for _, p := range registry.Multiple(capability.TakeoverVeto) {
		vp, ok := p.Value.(VetoProvider)
		if !ok {
			log.Warn("takeover veto provider does not implement VetoProvider, ignoring", logger.String("provider", p.Name))
			continue
		}
		vetoes = append(vetoes, vp.VetoTakeover)
	}
	pub.SetVetoes(vetoes)

	a := &App{
		cfg:       cfg,
		nodeID:    nodeID,
		tickTime:  tickTime,
		registry:  registry,
		adapter:   adapter,
		db:        db,
		health:    tracker,
		publisher: pub,
		connInfo:  connInfo,
		sleep:     time.Sleep,
		exit:      os.Exit,
	}

	for _, p := range registry.Multiple(capability.HealthMonitor) {
		if m, ok := p.Value.(Monitor); ok {
			a.monitors = append(a.monitors, m)
		} else {
			log.Warn("health monitor provider does not implement Monitor, ignoring", logger.String("provider", p.Name))
		}
	}
	for _, p := range registry.Multiple(capability.StateNotify) {
		if o, ok := p.Value.(StateObserver); ok {
			a.stateObservers = append(a.stateObservers, o)
		}
	}
	for _, p := range registry.Multiple(capability.ConnInfoNotify) {
		if o, ok := p.Value.(ConnInfoObserver); ok {
			a.connObservers = append(a.connObservers, o)
		}
	}

	a.takeover = takeover.New(takeover.Config{
		NodeID:    nodeID,
		TickTime:  tickTime,
		Adapter:   adapter,
		DB:        db,
		Publisher: pub,
		Healthy:   tracker.Healthy,
		Ranker:    ranker,
		Callbacks: a,
	})

	a.bootstrap = bootstrap.New(nodeID, db, adapter)
	a.bootstrap.StartMonitors = a.startMonitors
	a.bootstrap.InstallWatches = a.installWatches
	a.bootstrap.PublishConnInfo = func(ctx context.Context) error { return a.adapter.SetConnInfo(ctx, a.connInfo.Clone()) }
	a.bootstrap.ClearInitializing = func() { a.MarkHealthy(publisher.InitializingKey) }
	a.bootstrap.PublishRole = func(ctx context.Context, role dbctl.Role) error {
		return a.publisher.Update(ctx, document.Document{"replication_role": role.String()})
	}
	a.bootstrap.Healthy = tracker.Healthy
	a.bootstrap.ScheduleUnhealthyMasterHandlerAfter = func(ticks int) {
		time.AfterFunc(time.Duration(ticks)*tickTime, func() { a.takeover.HandleUnhealthyMaster(a.ctx) })
	}

	tracker.Subscribe(a.onHealthTransition)

	return a, nil
}

// mergeConnInfo merges conn-info provider outputs in registration
// order; later providers override earlier ones and log the shadowing
// (spec.md §3 invariant 4).
func mergeConnInfo(providers []capability.Provider) document.Document {
	merged := document.Document{}
	for _, p := range providers {
		provider, ok := p.Value.(connectinfo.Provider)
		if !ok {
			log.Warn("connection-info provider does not implement connectinfo.Provider, ignoring", logger.String("provider", p.Name))
			continue
		}
		for k, v := range provider.ConnInfo() {
			if _, shadowed := merged[k]; shadowed {
				log.Warn("connection-info key shadowed by a later provider",
					logger.String("key", k), logger.String("provider", p.Name))
			}
			merged[k] = v
		}
	}
	return merged
}

// Run implements spec.md §4.7's Agent Loop: initialize() and dispatch
// on its outcome, then block in the steady-state event loop forever.
func (a *App) Run(ctx context.Context) {
	a.mutex.Lock()
	a.ctx = ctx
	a.mutex.Unlock()

	a.MarkUnhealthy(publisher.InitializingKey, "agent is still initializing", true)

	outcome, err := a.bootstrap.Initialize(ctx)
	if err != nil {
		var fatal *bootstrap.FatalError
		if ok := asFatal(err, &fatal); ok {
			log.Error("fatal bootstrap failure, exiting", logger.Error(fatal.Err), logger.Int("exit_code", fatal.Code))
			a.exitNow(fatal.Code)
			return
		}
		log.Error("initialize failed, restarting with backoff", logger.Error(err))
		a.Restart(10)
		return
	}
	if outcome.RetryTicks > 0 {
		a.Restart(outcome.RetryTicks)
		return
	}
	if outcome.Restart {
		a.Restart(0)
		return
	}

	a.eventLoop(ctx)
}

func asFatal(err error, target **bootstrap.FatalError) bool {
	fe, ok := err.(*bootstrap.FatalError)
	if ok {
		*target = fe
	}
	return ok
}

// eventLoop blocks forever: every real state transition happens on DCS
// watch callbacks and scheduled timers, which this goroutine does not
// drive directly (spec.md §5's single-threaded cooperative model).
// Unhandled panics here are the "Unknown unhandled" category of
// spec.md §7: logged, exit code 1, restart(10).
func (a *App) eventLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("unhandled panic in agent event loop, restarting", logger.Any("panic", r))
			a.SetExitCode(1)
			a.Restart(10)
		}
	}()
	<-ctx.Done()
}

// SetExitCode overrides the process exit code used by the next Restart
// or exitNow call. Default is 0 (normal stop).
func (a *App) SetExitCode(code int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.exitCode = code
}

// Restart implements spec.md §4.7's restart(t): if running as master,
// stop the database (split-brain guard); disconnect the DCS session so
// its ephemeral keys expire; block for t*tick_time; terminate the
// process so the supervisor restarts it. Concurrent Restart calls
// collapse into one.
func (a *App) Restart(ticks int) {
	a.mutex.Lock()
	if a.restarting {
		a.mutex.Unlock()
		return
	}
	a.restarting = true
	ctx := a.ctx
	code := a.exitCode
	a.mutex.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	if role, err := a.db.ReplicationRole(ctx); err != nil {
		log.Warn("could not read replication role before restart", logger.Error(err))
	} else if role == dbctl.RoleMaster {
		if err := a.db.Stop(ctx); err != nil {
			log.Warn("stop before restart failed, continuing", logger.Error(err))
		}
	}

	if err := a.adapter.Disconnect(ctx); err != nil {
		log.Warn("disconnect before restart failed, continuing", logger.Error(err))
	}

	log.Info("restarting", logger.Int("ticks", ticks), logger.Any("delay", time.Duration(ticks)*a.tickTime))
	a.sleep(time.Duration(ticks) * a.tickTime)
	a.exit(code)
}

// exitNow is the fatal-bootstrap-failure path (spec.md §7 category 4):
// the database was already reset by the bootstrap controller, so there
// is no split-brain guard to run; just disconnect and exit.
func (a *App) exitNow(code int) {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.adapter.Disconnect(ctx); err != nil {
		log.Warn("disconnect during fatal exit failed, continuing", logger.Error(err))
	}
	a.exit(code)
}

// MarkHealthy clears a health problem and always re-publishes state,
// matching deadman.py's "mark_healthy... triggers publication" (spec.md
// §4.2), in addition to any edge-triggered side effects in
// onHealthTransition.
func (a *App) MarkHealthy(key string) {
	a.health.MarkHealthy(key)
	if err := a.publisher.Update(a.ctxOrBackground(), document.Document{}); err != nil {
		log.Warn("failed to publish state after clearing health problem", logger.String("key", key), logger.Error(err))
	}
}

// MarkUnhealthy records a health problem and always re-publishes state.
func (a *App) MarkUnhealthy(key, reason string, canBeReplica bool) {
	a.health.MarkUnhealthy(key, reason, canBeReplica)
	if err := a.publisher.Update(a.ctxOrBackground(), document.Document{}); err != nil {
		log.Warn("failed to publish state after marking health problem", logger.String("key", key), logger.Error(err))
	}
}

// ConnInfo returns the merged connection-info document, the
// "pg_connect_info" callback of spec.md §9's design note.
func (a *App) ConnInfo() document.Document {
	return a.connInfo.Clone()
}

func (a *App) ctxOrBackground() context.Context {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// onHealthTransition implements spec.md §4.2's healthy<->unhealthy
// transition side effects.
func (a *App) onHealthTransition(tr health.Transition) {
	ctx := a.ctxOrBackground()
	role, err := a.db.ReplicationRole(ctx)
	if err != nil {
		log.Warn("could not read replication role during health transition", logger.Error(err))
		return
	}

	if tr.BecameUnhealthy {
		if role == dbctl.RoleMaster {
			a.takeover.HandleUnhealthyMaster(ctx)
		}
		if role == dbctl.RoleReplica && !tr.Problem.CanBeReplica {
			if err := a.adapter.DeleteConnInfo(ctx); err != nil {
				log.Warn("failed to delete connection info for a non-replica-capable problem", logger.Error(err))
			}
		}
		return
	}

	// Last problem cleared.
	if role == dbctl.RoleMaster {
		ok, err := a.adapter.Lock(ctx, "master")
		if err != nil || !ok {
			log.Error("failed to re-assert the master lock after becoming healthy, restarting", logger.Error(err))
			a.Restart(10)
			return
		}
	}
	if err := a.adapter.SetConnInfo(ctx, a.connInfo.Clone()); err != nil {
		log.Warn("failed to re-publish connection info after becoming healthy", logger.Error(err))
	}
}

// startMonitors starts every registered health monitor with the narrow
// Callbacks surface.
func (a *App) startMonitors(ctx context.Context) error {
	for _, m := range a.monitors {
		if err := m.Start(ctx, a); err != nil {
			return fmt.Errorf("agent: start monitor: %w", err)
		}
	}
	return nil
}

// installWatches subscribes to DCS master-lock, peer-state, and
// peer-conn-info changes, and to session-state transitions (spec.md
// §4.4).
func (a *App) installWatches(ctx context.Context) error {
	err := a.adapter.Watch(ctx,
		func(owner string) { a.takeover.OnMasterLockChanged(ctx, owner) },
		func(ps dcs.PeerState) {
			for _, o := range a.stateObservers {
				o.OnPeerState(ps)
			}
		},
		func(ps dcs.PeerState) {
			for _, o := range a.connObservers {
				o.OnPeerConnInfo(ps)
			}
		},
	)
	if err != nil {
		return fmt.Errorf("agent: install watches: %w", err)
	}
	return a.adapter.WatchSessionState(ctx, func(state dcs.SessionState) { a.onSessionStateChange(ctx, state) })
}

const dcsConnectionProblemKey = "dcs.no_connection"

// onSessionStateChange implements spec.md §4.4's session-state
// callbacks: SUSPENDED marks unhealthy (replica-capable) after a tick
// unless it clears within grace; LOST requests a full restart.
func (a *App) onSessionStateChange(ctx context.Context, state dcs.SessionState) {
	switch state {
	case dcs.SessionSuspended:
		a.mutex.Lock()
		if a.suspendTick != nil {
			a.suspendTick.Stop()
		}
		a.suspendTick = time.AfterFunc(a.tickTime, func() {
			a.MarkUnhealthy(dcsConnectionProblemKey, "DCS session suspended", true)
		})
		a.mutex.Unlock()
	case dcs.SessionConnected:
		a.mutex.Lock()
		if a.suspendTick != nil {
			a.suspendTick.Stop()
			a.suspendTick = nil
		}
		a.mutex.Unlock()
		a.MarkHealthy(dcsConnectionProblemKey)
	case dcs.SessionLost:
		a.mutex.Lock()
		if a.suspendTick != nil {
			a.suspendTick.Stop()
			a.suspendTick = nil
		}
		a.mutex.Unlock()
		log.Error("DCS session lost, restarting")
		a.Restart(10)
	}
}

var _ Callbacks = (*App)(nil)
var _ takeover.Callbacks = (*App)(nil)
