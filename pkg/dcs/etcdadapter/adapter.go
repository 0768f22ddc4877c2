// Package etcdadapter implements pkg/dcs.Adapter over etcd, the
// concrete DCS this agent ships with. It follows the
// clientv3+clientv3/concurrency session/lease pattern sampled from the
// retrieval pack (other_examples' stolon-pgbouncer failover package),
// adapted to the non-blocking lock and watch-callback contract of
// spec.md §4.4 and the group-scoped key layout of spec.md §6.
package etcdadapter

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/document"
)

var log = logger.GetLogger("Deadman", "EtcdAdapter")

const rootPrefix = "/zgres"

// Config locates the etcd cluster and this node's place in it.
type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	// Group namespaces one cluster's records from others (spec.md §6).
	Group string
	// NodeID is this node's my_id; it is both the ephemeral key suffix
	// under state/ and conn/, and the value written into lock/master.
	NodeID string
	// SessionTTL is the lease TTL backing every ephemeral key and lock
	// this adapter creates, and the keepalive silence after which
	// WatchSessionState reports SUSPENDED. It is used as given, not
	// scaled by tick_time.
	SessionTTL time.Duration
}

// Adapter implements dcs.Adapter against an etcd cluster.
type Adapter struct {
	cfg     Config
	client  *clientv3.Client
	session *concurrency.Session

	leaseMu sync.Mutex
	leaseID clientv3.LeaseID
}

// New dials etcd and opens the session whose lease backs every
// ephemeral record this node publishes.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 20 * time.Second
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Context:     ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("etcdadapter: dial: %w", err)
	}
	session, err := concurrency.NewSession(client, concurrency.WithTTL(int(cfg.SessionTTL.Seconds())))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("etcdadapter: open session: %w", err)
	}
	a := &Adapter{cfg: cfg, client: client, session: session, leaseID: session.Lease()}
	return a, nil
}

func (a *Adapter) key(parts ...string) string {
	return path.Join(append([]string{rootPrefix, a.cfg.Group}, parts...)...)
}

func (a *Adapter) stateKey(nodeID string) string { return a.key("state", nodeID) }
func (a *Adapter) connKey(nodeID string) string  { return a.key("conn", nodeID) }
func (a *Adapter) lockKey(name string) string    { return a.key("lock", name) }

// GetDBID reads the persistent database-identifier record.
func (a *Adapter) GetDBID(ctx context.Context) (string, bool, error) {
	resp, err := a.client.Get(ctx, a.key("dbid"))
	if err != nil {
		return "", false, err
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// SetDBID conditionally creates the dbid record. It is persistent (no
// lease) so it survives every session (spec.md §3: "once set... it is
// immutable for the cluster's lifetime").
func (a *Adapter) SetDBID(ctx context.Context, id string) (bool, error) {
	key := a.key("dbid")
	resp, err := a.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, id)).
		Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

// GetTimeline reads the persistent cluster timeline, defaulting to 0.
func (a *Adapter) GetTimeline(ctx context.Context) (int64, error) {
	resp, err := a.client.Get(ctx, a.key("timeline"))
	if err != nil {
		return 0, err
	}
	if len(resp.Kvs) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("etcdadapter: malformed timeline record: %w", err)
	}
	return n, nil
}

// SetTimeline writes the cluster timeline unconditionally; callers own
// the monotonic-increase invariant.
func (a *Adapter) SetTimeline(ctx context.Context, n int64) error {
	_, err := a.client.Put(ctx, a.key("timeline"), strconv.FormatInt(n, 10))
	return err
}

// Lock attempts to create the named lock key under this session's
// lease, succeeding only if nothing else currently holds it. It never
// blocks: failure to acquire is reported as (false, nil), matching
// spec.md §4.4's "returns success/failure immediately".
func (a *Adapter) Lock(ctx context.Context, name string) (bool, error) {
	key := a.lockKey(name)
	resp, err := a.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, a.cfg.NodeID, clientv3.WithLease(a.leaseID))).
		Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

// Unlock releases name if and only if this node's session holds it.
func (a *Adapter) Unlock(ctx context.Context, name string) error {
	key := a.lockKey(name)
	_, err := a.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", a.cfg.NodeID)).
		Then(clientv3.OpDelete(key)).
		Commit()
	return err
}

// LockOwner returns the current holder's my_id, or "" if vacant.
func (a *Adapter) LockOwner(ctx context.Context, name string) (string, error) {
	resp, err := a.client.Get(ctx, a.lockKey(name))
	if err != nil {
		return "", err
	}
	if len(resp.Kvs) == 0 {
		return "", nil
	}
	return string(resp.Kvs[0].Value), nil
}

// SetState publishes this node's state document under its session
// lease: the document disappears when the session ends (spec.md §3).
func (a *Adapter) SetState(ctx context.Context, doc document.Document) error {
	_, err := a.client.Put(ctx, a.stateKey(a.cfg.NodeID), string(doc.Bytes()), clientv3.WithLease(a.leaseID))
	return err
}

// ListState enumerates every peer's published state in this group.
func (a *Adapter) ListState(ctx context.Context) ([]dcs.PeerState, error) {
	return a.listDocuments(ctx, a.key("state")+"/")
}

// SetConnInfo publishes this node's connection-info document.
func (a *Adapter) SetConnInfo(ctx context.Context, doc document.Document) error {
	_, err := a.client.Put(ctx, a.connKey(a.cfg.NodeID), string(doc.Bytes()), clientv3.WithLease(a.leaseID))
	return err
}

// DeleteConnInfo removes this node's connection-info document (spec.md
// §4.2: dropped when a non-replica-capable health problem appears).
func (a *Adapter) DeleteConnInfo(ctx context.Context) error {
	_, err := a.client.Delete(ctx, a.connKey(a.cfg.NodeID))
	return err
}

// ListConnInfo enumerates every peer's published connection-info.
func (a *Adapter) ListConnInfo(ctx context.Context) ([]dcs.PeerState, error) {
	return a.listDocuments(ctx, a.key("conn")+"/")
}

func (a *Adapter) listDocuments(ctx context.Context, prefix string) ([]dcs.PeerState, error) {
	resp, err := a.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]dcs.PeerState, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		doc, err := document.Unmarshal(kv.Value)
		if err != nil {
			log.Warn("skipping malformed document", logger.String("key", string(kv.Key)), logger.Error(err))
			continue
		}
		out = append(out, dcs.PeerState{NodeID: strings.TrimPrefix(string(kv.Key), prefix), State: doc})
	}
	return out, nil
}

// Watch subscribes to master-lock, peer-state, and peer-conn-info
// changes. The three etcd watch channels are fanned into a single
// consumer goroutine so callbacks are delivered single-threaded with
// respect to each other, per spec.md §4.4.
func (a *Adapter) Watch(ctx context.Context, onMasterLock func(owner string), onState func(dcs.PeerState), onConnInfo func(dcs.PeerState)) error {
	lockCh := a.client.Watch(ctx, a.lockKey("master"))
	stateCh := a.client.Watch(ctx, a.key("state")+"/", clientv3.WithPrefix())
	connCh := a.client.Watch(ctx, a.key("conn")+"/", clientv3.WithPrefix())

	statePrefix := a.key("state") + "/"
	connPrefix := a.key("conn") + "/"

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case resp, ok := <-lockCh:
				if !ok {
					return
				}
				for _, ev := range resp.Events {
					if ev.Type == clientv3.EventTypeDelete {
						onMasterLock("")
						continue
					}
					onMasterLock(string(ev.Kv.Value))
				}
			case resp, ok := <-stateCh:
				if !ok {
					return
				}
				for _, ev := range resp.Events {
					onState(eventToPeerState(ev, statePrefix))
				}
			case resp, ok := <-connCh:
				if !ok {
					return
				}
				for _, ev := range resp.Events {
					onConnInfo(eventToPeerState(ev, connPrefix))
				}
			}
		}
	}()
	return nil
}

func eventToPeerState(ev *clientv3.Event, prefix string) dcs.PeerState {
	nodeID := strings.TrimPrefix(string(ev.Kv.Key), prefix)
	if ev.Type == clientv3.EventTypeDelete {
		return dcs.PeerState{NodeID: nodeID, State: nil}
	}
	doc, err := document.Unmarshal(ev.Kv.Value)
	if err != nil {
		log.Warn("dropping malformed watch event document", logger.String("node_id", nodeID), logger.Error(err))
		return dcs.PeerState{NodeID: nodeID, State: document.Document{}}
	}
	return dcs.PeerState{NodeID: nodeID, State: doc}
}

// WatchSessionState tracks this adapter's own etcd session: the lease's
// keepalive stream is consumed directly (bypassing concurrency.Session's
// coarser Done()-only signal) so a missed-but-recoverable keepalive
// round can be reported as SUSPENDED before a hard LOST.
func (a *Adapter) WatchSessionState(ctx context.Context, onChange func(dcs.SessionState)) error {
	keepAlive, err := a.client.KeepAlive(ctx, a.leaseID)
	if err != nil {
		return fmt.Errorf("etcdadapter: start keepalive: %w", err)
	}

	go func() {
		suspended := false
		timeout := a.cfg.SessionTTL
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if !suspended {
					suspended = true
					onChange(dcs.SessionSuspended)
				}
				timer.Reset(timeout)
			case resp, ok := <-keepAlive:
				if !ok {
					onChange(dcs.SessionLost)
					return
				}
				if resp == nil {
					continue
				}
				if suspended {
					suspended = false
					onChange(dcs.SessionConnected)
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(timeout)
			}
		}
	}()
	return nil
}

// Disconnect ends the session: every ephemeral key it owns (lock/master,
// state/<id>, conn/<id>) is released as etcd expires the lease.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if err := a.session.Close(); err != nil {
		log.Warn("session close returned an error", logger.Error(err))
	}
	return a.client.Close()
}

var _ dcs.Adapter = (*Adapter)(nil)
