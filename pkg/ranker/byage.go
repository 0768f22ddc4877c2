// Package ranker provides the default capability.ReplicaRanker
// provider. The original zgres "best_replicas" capability is plugin-
// supplied and cluster-specific (original_source/zgres/deadman.py);
// ByWillingAge is a reasonable cluster-agnostic default: prefer the
// replica that has been willing the longest, breaking ties on node id
// for determinism.
package ranker

import (
	"sort"

	"github.com/viki00/zgres/pkg/dcs"
)

// ByWillingAge orders candidates oldest-willing-first.
type ByWillingAge struct{}

// Rank implements takeover.Ranker.
func (ByWillingAge) Rank(candidates []dcs.PeerState) []dcs.PeerState {
	out := make([]dcs.PeerState, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aok := toFloat(out[i].State["willing"])
		aj, bok := toFloat(out[j].State["willing"])
		switch {
		case aok && bok && ai != aj:
			return ai < aj
		case aok != bok:
			return aok
		default:
			return out[i].NodeID < out[j].NodeID
		}
	})
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
