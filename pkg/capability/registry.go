// Package capability implements the fixed capability catalog described
// in spec.md §4.1: named capabilities bound to concrete providers, with
// arity enforced at registration instead of dynamic attribute lookup.
package capability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/pkg/zgerrors"
)

var log = logger.GetLogger("Deadman", "Capability")

// Arity describes how many providers a capability accepts.
type Arity int

const (
	// Single means exactly one provider may be registered; invocation is
	// a direct call, not a fan-out.
	Single Arity = iota
	// Multiple means zero or more providers may be registered, invoked in
	// registration order.
	Multiple
)

// Spec describes one entry in the fixed capability catalog.
type Spec struct {
	Name     string
	Required bool
	Arity    Arity
}

// Provider pairs a registered provider's name with its value, for
// Multiple-arity dispatch results (spec.md §4.1: "(provider-name, value)
// pairs").
type Provider struct {
	Name  string
	Value any
}

// Registry binds capability names to concrete providers and enforces
// arity. It performs no scheduling: callers dispatch synchronously.
type Registry struct {
	mutex    sync.Mutex
	catalog  map[string]Spec
	single   map[string]Provider
	multiple map[string][]Provider
}

// NewRegistry creates a Registry for the given fixed catalog.
func NewRegistry(catalog []Spec) *Registry {
	r := &Registry{
		catalog:  make(map[string]Spec, len(catalog)),
		single:   make(map[string]Provider),
		multiple: make(map[string][]Provider),
	}
	for _, c := range catalog {
		r.catalog[c.Name] = c
	}
	return r
}

// Register binds a provider to a capability name. For Single-arity
// capabilities, a second registration returns ErrCapabilityTaken.
func (r *Registry) Register(name, providerName string, value any) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	spec, ok := r.catalog[name]
	if !ok {
		return fmt.Errorf("zgres: unknown capability %q", name)
	}
	switch spec.Arity {
	case Single:
		if _, taken := r.single[name]; taken {
			return fmt.Errorf("%w: %s already bound to %s", zgerrors.ErrCapabilityTaken, name, r.single[name].Name)
		}
		r.single[name] = Provider{Name: providerName, Value: value}
	case Multiple:
		r.multiple[name] = append(r.multiple[name], Provider{Name: providerName, Value: value})
	}
	log.Info("registered capability provider", logger.String("capability", name), logger.String("provider", providerName))
	return nil
}

// Single returns the one provider bound to a Single-arity capability, or
// false if none is registered.
func (r *Registry) Single(name string) (Provider, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, ok := r.single[name]
	return p, ok
}

// Multiple returns every provider bound to a Multiple-arity capability,
// in registration order. An empty, non-nil slice is returned when none
// are registered: per the "veto_takeover missing provider" design note
// (spec.md §9), an empty set must behave as a no-op, not an error.
func (r *Registry) Multiple(name string) []Provider {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]Provider, len(r.multiple[name]))
	copy(out, r.multiple[name])
	return out
}

// CheckRequired verifies every required capability in the catalog has at
// least one registered provider. Missing a required capability at
// startup is a fatal configuration error (spec.md §4.1).
func (r *Registry) CheckRequired() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var missing []string
	for name, spec := range r.catalog {
		if !spec.Required {
			continue
		}
		switch spec.Arity {
		case Single:
			if _, ok := r.single[name]; !ok {
				missing = append(missing, name)
			}
		case Multiple:
			if len(r.multiple[name]) == 0 {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %v", zgerrors.ErrCapabilityMissing, missing)
}
