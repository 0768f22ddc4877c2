package capability

// Capability names in the fixed catalog (spec.md §4.1, mirroring the
// _PLUGIN_API table in the original deadman implementation).
const (
	DCSLock        = "dcs.lock"         // single: the DCS adapter itself
	DBControl      = "db.control"       // single: database control contract
	NodeIdentity   = "node.identity"    // single: my_id provider
	ReplicaRanker  = "replica.ranker"   // single: best_replicas
	HealthMonitor  = "health.monitor"   // multiple: monitors calling mark_unhealthy/mark_healthy
	ConnInfoSource = "connectinfo.source" // multiple: conn-info providers
	TakeoverVeto   = "takeover.veto"    // multiple: veto_takeover
	StateNotify    = "state.notify"     // multiple: notify_state subscribers
	ConnInfoNotify = "connectinfo.notify" // multiple: notify_conn_info subscribers
)

// Catalog is the fixed capability catalog the agent enforces at startup.
func Catalog() []Spec {
	return []Spec{
		{Name: DCSLock, Required: true, Arity: Single},
		{Name: DBControl, Required: true, Arity: Single},
		{Name: NodeIdentity, Required: true, Arity: Single},
		{Name: ReplicaRanker, Required: true, Arity: Single},
		{Name: HealthMonitor, Required: false, Arity: Multiple},
		{Name: ConnInfoSource, Required: true, Arity: Multiple},
		{Name: TakeoverVeto, Required: false, Arity: Multiple},
		{Name: StateNotify, Required: false, Arity: Multiple},
		{Name: ConnInfoNotify, Required: false, Arity: Multiple},
	}
}
