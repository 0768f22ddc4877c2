package etcdadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	mvccpb "go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/viki00/zgres/pkg/document"
)

func TestAdapter_KeyLayout(t *testing.T) {
	a := &Adapter{cfg: Config{Group: "mygroup", NodeID: "node-1"}}

	assert.Equal(t, "/zgres/mygroup/dbid", a.key("dbid"))
	assert.Equal(t, "/zgres/mygroup/timeline", a.key("timeline"))
	assert.Equal(t, "/zgres/mygroup/lock/master", a.lockKey("master"))
	assert.Equal(t, "/zgres/mygroup/lock/database_identifier", a.lockKey("database_identifier"))
	assert.Equal(t, "/zgres/mygroup/state/node-1", a.stateKey("node-1"))
	assert.Equal(t, "/zgres/mygroup/conn/node-1", a.connKey("node-1"))
}

func TestEventToPeerState_Put(t *testing.T) {
	ev := &clientv3.Event{
		Type: clientv3.EventTypePut,
		Kv: &mvccpb.KeyValue{
			Key:   []byte("/zgres/mygroup/state/node-2"),
			Value: document.Document{"replication_role": "replica"}.Bytes(),
		},
	}
	ps := eventToPeerState(ev, "/zgres/mygroup/state/")
	assert.Equal(t, "node-2", ps.NodeID)
	assert.Equal(t, "replica", ps.State["replication_role"])
}

func TestEventToPeerState_Delete(t *testing.T) {
	ev := &clientv3.Event{
		Type: clientv3.EventTypeDelete,
		Kv: &mvccpb.KeyValue{
			Key: []byte("/zgres/mygroup/conn/node-3"),
		},
	}
	ps := eventToPeerState(ev, "/zgres/mygroup/conn/")
	assert.Equal(t, "node-3", ps.NodeID)
	assert.Nil(t, ps.State)
}
