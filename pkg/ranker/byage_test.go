package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/document"
)

func TestByWillingAge_OrdersOldestFirst(t *testing.T) {
	candidates := []dcs.PeerState{
		{NodeID: "c", State: document.Document{"willing": float64(300)}},
		{NodeID: "a", State: document.Document{"willing": float64(100)}},
		{NodeID: "b", State: document.Document{"willing": float64(200)}},
	}
	ranked := ByWillingAge{}.Rank(candidates)
	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(ranked))
}

func TestByWillingAge_TiesBrokenByNodeID(t *testing.T) {
	candidates := []dcs.PeerState{
		{NodeID: "z", State: document.Document{"willing": float64(100)}},
		{NodeID: "a", State: document.Document{"willing": float64(100)}},
	}
	ranked := ByWillingAge{}.Rank(candidates)
	assert.Equal(t, []string{"a", "z"}, nodeIDs(ranked))
}

func TestByWillingAge_MissingWillingSortsLast(t *testing.T) {
	candidates := []dcs.PeerState{
		{NodeID: "no-willing", State: document.Document{}},
		{NodeID: "willing", State: document.Document{"willing": float64(1)}},
	}
	ranked := ByWillingAge{}.Rank(candidates)
	assert.Equal(t, []string{"willing", "no-willing"}, nodeIDs(ranked))
}

func nodeIDs(states []dcs.PeerState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.NodeID
	}
	return out
}
