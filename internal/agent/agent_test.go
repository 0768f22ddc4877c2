package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/viki00/zgres/config"
	"github.com/viki00/zgres/pkg/capability"
	"github.com/viki00/zgres/pkg/dbctl"
	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/document"
)

type fakeIdentity struct{ id string }

func (f fakeIdentity) MyID(context.Context) (string, error) { return f.id, nil }

type fakeRanker struct{}

func (fakeRanker) Rank(candidates []dcs.PeerState) []dcs.PeerState { return candidates }

type fakeConnInfo struct{ doc document.Document }

func (f fakeConnInfo) ConnInfo() document.Document { return f.doc }

func newTestRegistry(t *testing.T, adapter dcs.Adapter, db dbctl.Controller) *capability.Registry {
	t.Helper()
	reg := capability.NewRegistry(capability.Catalog())
	assert.NoError(t, reg.Register(capability.DCSLock, "etcd", adapter))
	assert.NoError(t, reg.Register(capability.DBControl, "postgres", db))
	assert.NoError(t, reg.Register(capability.NodeIdentity, "static", fakeIdentity{id: "node-1"}))
	assert.NoError(t, reg.Register(capability.ReplicaRanker, "fifo", fakeRanker{}))
	assert.NoError(t, reg.Register(capability.ConnInfoSource, "static", fakeConnInfo{doc: document.Document{"host": "10.0.0.1"}}))
	return reg
}

func newTestApp(t *testing.T, adapter dcs.Adapter, db dbctl.Controller) *App {
	t.Helper()
	reg := newTestRegistry(t, adapter, db)
	cfg := config.NewDefaultAgent()
	cfg.Deadman.TickTime = 0
	a, err := New(context.Background(), cfg, reg)
	assert.NoError(t, err)
	a.sleep = func(time.Duration) {}
	return a
}

func TestNew_MissingRequiredCapability_Errors(t *testing.T) {
	reg := capability.NewRegistry(capability.Catalog())

	_, err := New(context.Background(), config.NewDefaultAgent(), reg)
	assert.Error(t, err)
}

func TestRestart_StopsMasterDisconnectsAndExits(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	a := newTestApp(t, adapter, db)
	a.ctx = context.Background()

	db.EXPECT().ReplicationRole(gomock.Any()).Return(dbctl.RoleMaster, nil)
	db.EXPECT().Stop(gomock.Any()).Return(nil)
	adapter.EXPECT().Disconnect(gomock.Any()).Return(nil)

	var exitCode = -1
	a.exit = func(code int) { exitCode = code }

	a.Restart(5)
	assert.Equal(t, 0, exitCode)
}

func TestRestart_IsIdempotentUnderConcurrentCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	a := newTestApp(t, adapter, db)
	a.ctx = context.Background()

	db.EXPECT().ReplicationRole(gomock.Any()).Return(dbctl.RoleReplica, nil)
	adapter.EXPECT().Disconnect(gomock.Any()).Return(nil)

	var exits int
	a.exit = func(int) { exits++ }

	a.Restart(1)
	a.Restart(1)
	assert.Equal(t, 1, exits)
}

func TestOnSessionStateChange_SuspendedThenReconnect_NoUnhealthyIfFastEnough(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	a := newTestApp(t, adapter, db)
	a.ctx = context.Background()
	a.tickTime = time.Hour // never fires within the test

	adapter.EXPECT().SetConnInfo(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	adapter.EXPECT().SetState(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	a.onSessionStateChange(context.Background(), dcs.SessionSuspended)
	assert.False(t, a.health.Has(dcsConnectionProblemKey))

	a.onSessionStateChange(context.Background(), dcs.SessionConnected)
	assert.False(t, a.health.Has(dcsConnectionProblemKey))
}

func TestOnSessionStateChange_Lost_Restarts(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	a := newTestApp(t, adapter, db)
	a.ctx = context.Background()

	db.EXPECT().ReplicationRole(gomock.Any()).Return(dbctl.RoleReplica, nil)
	adapter.EXPECT().Disconnect(gomock.Any()).Return(nil)

	var exitCode = -1
	a.exit = func(code int) { exitCode = code }

	a.onSessionStateChange(context.Background(), dcs.SessionLost)
	assert.Equal(t, 0, exitCode)
}

func TestConnInfo_ReturnsMergedDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	a := newTestApp(t, adapter, db)
	assert.Equal(t, "10.0.0.1", a.ConnInfo()["host"])
}
