// Package health implements the Health Tracker of spec.md §4.2: a keyed
// set of active health problems with healthy<->unhealthy transition
// callbacks.
package health

import (
	"sync"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/pkg/document"
)

var log = logger.GetLogger("Deadman", "Health")

// Transition describes a healthy<->unhealthy edge.
type Transition struct {
	// BecameUnhealthy is true the moment the first problem is added while
	// otherwise healthy; false the moment the last problem is cleared.
	BecameUnhealthy bool
	Key             string
	Problem         document.Problem
}

// Tracker maintains the set of active health problems and notifies
// subscribers only on first-problem/last-problem transitions, matching
// deadman.py's unhealthy/healthy behavior (intermediate mark_unhealthy
// calls while already unhealthy do not re-fire the transition).
type Tracker struct {
	mutex    sync.Mutex
	problems map[string]document.Problem
	subs     []func(Transition)
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{problems: make(map[string]document.Problem)}
}

// Subscribe registers a callback invoked synchronously on every
// healthy<->unhealthy transition (not on every mark call).
func (t *Tracker) Subscribe(fn func(Transition)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.subs = append(t.subs, fn)
}

// MarkUnhealthy inserts or replaces the problem at key and fires a
// BecameUnhealthy transition iff this was the first problem.
func (t *Tracker) MarkUnhealthy(key, reason string, canBeReplica bool) {
	t.mutex.Lock()
	wasHealthy := len(t.problems) == 0
	t.problems[key] = document.Problem{Reason: reason, CanBeReplica: canBeReplica}
	subs := append([]func(Transition){}, t.subs...)
	t.mutex.Unlock()

	log.Warn("health problem added", logger.String("key", key), logger.String("reason", reason))
	if wasHealthy {
		fire(subs, Transition{BecameUnhealthy: true, Key: key, Problem: document.Problem{Reason: reason, CanBeReplica: canBeReplica}})
	}
}

// MarkHealthy removes the problem at key; no-op if absent. Fires a
// last-problem-cleared transition iff the tracker becomes empty.
func (t *Tracker) MarkHealthy(key string) {
	t.mutex.Lock()
	problem, had := t.problems[key]
	if !had {
		t.mutex.Unlock()
		return
	}
	delete(t.problems, key)
	becameHealthy := len(t.problems) == 0
	subs := append([]func(Transition){}, t.subs...)
	t.mutex.Unlock()

	log.Info("health problem cleared", logger.String("key", key))
	if becameHealthy {
		fire(subs, Transition{BecameUnhealthy: false, Key: key, Problem: problem})
	}
}

func fire(subs []func(Transition), tr Transition) {
	for _, fn := range subs {
		fn(tr)
	}
}

// Problems returns a snapshot copy of the active problem set.
func (t *Tracker) Problems() map[string]document.Problem {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	out := make(map[string]document.Problem, len(t.problems))
	for k, v := range t.problems {
		out[k] = v
	}
	return out
}

// Healthy reports whether there are zero active problems.
func (t *Tracker) Healthy() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.problems) == 0
}

// Has reports whether key is currently an active problem.
func (t *Tracker) Has(key string) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	_, ok := t.problems[key]
	return ok
}
