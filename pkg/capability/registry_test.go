package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SingleArity(t *testing.T) {
	r := NewRegistry(Catalog())

	_, ok := r.Single(DBControl)
	assert.False(t, ok)

	assert.NoError(t, r.Register(DBControl, "postgres", 1))
	p, ok := r.Single(DBControl)
	assert.True(t, ok)
	assert.Equal(t, "postgres", p.Name)
	assert.Equal(t, 1, p.Value)

	err := r.Register(DBControl, "postgres-2", 2)
	assert.ErrorContains(t, err, "already bound")
}

func TestRegistry_MultipleArity_RegistrationOrder(t *testing.T) {
	r := NewRegistry(Catalog())

	assert.NoError(t, r.Register(HealthMonitor, "disk", "disk-monitor"))
	assert.NoError(t, r.Register(HealthMonitor, "replication-lag", "lag-monitor"))

	providers := r.Multiple(HealthMonitor)
	assert.Equal(t, []Provider{
		{Name: "disk", Value: "disk-monitor"},
		{Name: "replication-lag", Value: "lag-monitor"},
	}, providers)
}

func TestRegistry_MultipleArity_EmptyIsNoop(t *testing.T) {
	r := NewRegistry(Catalog())

	providers := r.Multiple(TakeoverVeto)
	assert.NotNil(t, providers)
	assert.Len(t, providers, 0)
}

func TestRegistry_CheckRequired(t *testing.T) {
	r := NewRegistry(Catalog())
	err := r.CheckRequired()
	assert.ErrorContains(t, err, "required capability has no provider")

	assert.NoError(t, r.Register(DCSLock, "etcd", nil))
	assert.NoError(t, r.Register(DBControl, "postgres", nil))
	assert.NoError(t, r.Register(NodeIdentity, "static", nil))
	assert.NoError(t, r.Register(ReplicaRanker, "default", nil))
	// ConnInfoSource is required and Multiple-arity: still missing.
	err = r.CheckRequired()
	assert.ErrorContains(t, err, ConnInfoSource)

	assert.NoError(t, r.Register(ConnInfoSource, "static", nil))
	assert.NoError(t, r.CheckRequired())
}

func TestRegistry_UnknownCapability(t *testing.T) {
	r := NewRegistry(Catalog())
	err := r.Register("not.a.capability", "x", nil)
	assert.ErrorContains(t, err, "unknown capability")
}
