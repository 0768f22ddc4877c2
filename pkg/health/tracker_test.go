package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_MarkUnhealthyThenHealthy_RoundTrips(t *testing.T) {
	tr := NewTracker()
	before := tr.Problems()

	tr.MarkUnhealthy("disk.full", "disk at 95%", false)
	assert.True(t, tr.Has("disk.full"))
	assert.False(t, tr.Healthy())

	tr.MarkHealthy("disk.full")
	assert.Equal(t, before, tr.Problems())
	assert.True(t, tr.Healthy())
}

func TestTracker_MarkHealthy_AbsentIsNoop(t *testing.T) {
	tr := NewTracker()
	var fired bool
	tr.Subscribe(func(Transition) { fired = true })

	tr.MarkHealthy("never-was-a-problem")
	assert.False(t, fired)
}

func TestTracker_TransitionsOnlyFireOnEdges(t *testing.T) {
	tr := NewTracker()
	var transitions []Transition
	tr.Subscribe(func(tr Transition) { transitions = append(transitions, tr) })

	tr.MarkUnhealthy("a", "first", false)
	tr.MarkUnhealthy("b", "second", true)
	assert.Len(t, transitions, 1, "only the first problem should fire a transition")
	assert.True(t, transitions[0].BecameUnhealthy)
	assert.Equal(t, "a", transitions[0].Key)

	tr.MarkHealthy("a")
	assert.Len(t, transitions, 1, "clearing one of two problems should not fire a transition")

	tr.MarkHealthy("b")
	assert.Len(t, transitions, 2)
	assert.False(t, transitions[1].BecameUnhealthy)
	assert.Equal(t, "b", transitions[1].Key)
}
