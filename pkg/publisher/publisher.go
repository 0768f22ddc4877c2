// Package publisher implements the State Publisher of spec.md §4.3: it
// owns the local state document, computes the derived "willing" key,
// detects change by deep equality, and writes to the DCS unless
// suppressed by the reserved agent.initialize health problem.
package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/document"
)

var log = logger.GetLogger("Deadman", "Publisher")

// InitializingKey is the reserved health-problem key that suppresses
// every DCS state write while present (spec.md §3 invariant 3).
const InitializingKey = "agent.initialize"

// VetoFunc evaluates whether a registered veto objects to takeover,
// given a read-only view of the state about to be published. It mirrors
// deadman.py's veto_takeover(state) contract.
type VetoFunc func(state document.Document) bool

// Publisher owns the published state document.
type Publisher struct {
	mutex        sync.Mutex
	state        document.Document
	connInfoKeys map[string]bool
	healthFn     func() map[string]document.Problem
	vetoes       []VetoFunc
	adapter      dcs.Adapter
}

// New creates a Publisher. healthFn is consulted on every Update to
// merge the current health-problem set and decide write suppression;
// it is normally *health.Tracker.Problems.
func New(adapter dcs.Adapter, healthFn func() map[string]document.Problem) *Publisher {
	return &Publisher{
		state:        document.Document{},
		connInfoKeys: make(map[string]bool),
		healthFn:     healthFn,
		adapter:      adapter,
	}
}

// SetVetoes installs the registered takeover-veto providers. An empty
// slice is the no-op default (spec.md §9 open question).
func (p *Publisher) SetVetoes(vetoes []VetoFunc) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.vetoes = vetoes
}

// SeedConnInfo merges the given conn-info document into the state once,
// at initialization, and reserves its keys against later Update calls
// (spec.md §3 invariant 4).
func (p *Publisher) SeedConnInfo(info document.Document) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for k, v := range info {
		p.connInfoKeys[k] = true
		p.state[k] = v
	}
}

// Update merges kv into the state document, recomputes the derived
// "willing" key, and writes to the DCS if the merged document changed
// and agent.initialize is not an active health problem.
func (p *Publisher) Update(ctx context.Context, kv document.Document) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	changed := false
	for k, v := range kv {
		if k == "willing" {
			log.Warn("cannot set state key, it is automatically computed", logger.String("key", k))
			continue
		}
		if p.connInfoKeys[k] {
			log.Warn("cannot set state key, it was set by connection-info", logger.String("key", k))
			continue
		}
		existing, ok := p.state[k]
		if !ok || !document.DeepEqual(document.Document{"v": existing}, document.Document{"v": v}) {
			p.state[k] = v
			changed = true
		}
	}

	if p.updateAutoState() {
		changed = true
	}

	problems := p.healthFn()
	newProblems := toProblemMap(problems)
	oldProblems, _ := p.state["health_problems"].(map[string]document.Problem)
	if !problemsEqual(oldProblems, newProblems) {
		changed = true
	}
	p.state["health_problems"] = newProblems

	if !changed {
		return nil
	}
	if _, initializing := problems[InitializingKey]; initializing {
		return nil
	}
	return p.adapter.SetState(ctx, p.state.Clone())
}

// updateAutoState recomputes the "willing" key per spec.md §3 invariant 1:
// willing iff no health problems AND role==replica AND no active veto.
// "willing" is either a timestamp or null (deadman.py:347 sets None
// rather than omitting the key), so the key stays present in the
// document once computed; only its value toggles.
func (p *Publisher) updateAutoState() bool {
	willing := true
	if len(p.healthFn()) > 0 {
		willing = false
	}
	if role, _ := p.state["replication_role"].(string); role != "replica" {
		willing = false
	}
	if willing {
		for _, veto := range p.vetoes {
			if veto(p.state.Clone()) {
				willing = false
				break
			}
		}
	}

	existing, hadTimestamp := p.state["willing"]
	hadTimestamp = hadTimestamp && existing != nil

	var newValue any
	switch {
	case willing && hadTimestamp:
		newValue = existing
	case willing:
		newValue = nowSeconds()
	default:
		newValue = nil
	}

	if newValue == existing {
		return false
	}
	p.state["willing"] = newValue
	return true
}

// State returns a snapshot copy of the current document.
func (p *Publisher) State() document.Document {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state.Clone()
}

func problemsEqual(a, b map[string]document.Problem) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func toProblemMap(problems map[string]document.Problem) map[string]document.Problem {
	out := make(map[string]document.Problem, len(problems))
	for k, v := range problems {
		out[k] = v
	}
	return out
}

// nowSeconds is overridable in tests.
var nowSeconds = func() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
