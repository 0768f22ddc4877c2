package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/viki00/zgres/pkg/dbctl"
	"github.com/viki00/zgres/pkg/dcs"
	"github.com/viki00/zgres/pkg/zgerrors"
)

func TestMasterBootstrap_LockUnavailable_RetriesAfter5Ticks(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	db.EXPECT().InitDB(gomock.Any()).Return(nil)
	db.EXPECT().Start(gomock.Any()).Return(nil)
	db.EXPECT().GetDatabaseIdentifier(gomock.Any()).Return("local-id", nil)
	adapter.EXPECT().Lock(gomock.Any(), "database_identifier").Return(false, nil)

	c := New("node-1", db, adapter)
	outcome, err := c.MasterBootstrap(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 5, outcome.RetryTicks)
}

func TestMasterBootstrap_Success_RestartsToJoinSteadyState(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	db.EXPECT().InitDB(gomock.Any()).Return(nil)
	db.EXPECT().Start(gomock.Any()).Return(nil)
	db.EXPECT().GetDatabaseIdentifier(gomock.Any()).Return("local-id", nil)
	adapter.EXPECT().Lock(gomock.Any(), "database_identifier").Return(true, nil)
	adapter.EXPECT().Unlock(gomock.Any(), "database_identifier").Return(nil)
	adapter.EXPECT().GetDBID(gomock.Any()).Return("", false, nil)
	db.EXPECT().Backup(gomock.Any()).Return(nil)
	adapter.EXPECT().SetDBID(gomock.Any(), "local-id").Return(true, nil)

	c := New("node-1", db, adapter)
	outcome, err := c.MasterBootstrap(context.Background())

	assert.NoError(t, err)
	assert.True(t, outcome.Restart)
}

func TestMasterBootstrap_BackupFails_IsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	db.EXPECT().InitDB(gomock.Any()).Return(nil)
	db.EXPECT().Start(gomock.Any()).Return(nil)
	db.EXPECT().GetDatabaseIdentifier(gomock.Any()).Return("local-id", nil)
	adapter.EXPECT().Lock(gomock.Any(), "database_identifier").Return(true, nil)
	adapter.EXPECT().Unlock(gomock.Any(), "database_identifier").Return(nil)
	adapter.EXPECT().GetDBID(gomock.Any()).Return("", false, nil)
	db.EXPECT().Backup(gomock.Any()).Return(errors.New("disk full"))

	c := New("node-1", db, adapter)
	_, err := c.MasterBootstrap(context.Background())

	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
	assert.Equal(t, 1, fatal.Code)
}

func TestMasterBootstrap_SetDBIDRejected_IsFatalInvariantViolation(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	db.EXPECT().InitDB(gomock.Any()).Return(nil)
	db.EXPECT().Start(gomock.Any()).Return(nil)
	db.EXPECT().GetDatabaseIdentifier(gomock.Any()).Return("local-id", nil)
	adapter.EXPECT().Lock(gomock.Any(), "database_identifier").Return(true, nil)
	adapter.EXPECT().Unlock(gomock.Any(), "database_identifier").Return(nil)
	adapter.EXPECT().GetDBID(gomock.Any()).Return("", false, nil)
	db.EXPECT().Backup(gomock.Any()).Return(nil)
	adapter.EXPECT().SetDBID(gomock.Any(), "local-id").Return(false, nil)

	c := New("node-1", db, adapter)
	_, err := c.MasterBootstrap(context.Background())

	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
	assert.Equal(t, 1, fatal.Code)
	assert.ErrorIs(t, err, zgerrors.ErrInvariantViolation)
}

func TestReplicaBootstrap_RoleMismatchAfterSetup_ResetsAndFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	db.EXPECT().Stop(gomock.Any()).Return(nil)
	db.EXPECT().InitDB(gomock.Any()).Return(nil)
	db.EXPECT().Restore(gomock.Any()).Return(nil)
	db.EXPECT().SetupReplication(gomock.Any(), gomock.Any()).Return(nil)
	db.EXPECT().ReplicationRole(gomock.Any()).Return(dbctl.RoleMaster, nil)
	db.EXPECT().GetDatabaseIdentifier(gomock.Any()).Return("local-id", nil)
	adapter.EXPECT().GetDBID(gomock.Any()).Return("cluster-id", true, nil)
	db.EXPECT().Reset(gomock.Any()).Return(nil)

	c := New("node-1", db, adapter)
	_, err := c.ReplicaBootstrap(context.Background(), nil)

	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
	assert.Equal(t, 5, fatal.Code)
}

func TestInitialize_StaleMasterTimeline_ResetsAndIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	db.EXPECT().ReplicationRole(gomock.Any()).Return(dbctl.RoleMaster, nil)
	adapter.EXPECT().Lock(gomock.Any(), "master").Return(false, nil)
	db.EXPECT().Stop(gomock.Any()).Return(nil)
	db.EXPECT().GetTimeline(gomock.Any()).Return(int64(3), nil)
	adapter.EXPECT().GetTimeline(gomock.Any()).Return(int64(7), nil)
	db.EXPECT().Reset(gomock.Any()).Return(nil)
	adapter.EXPECT().GetDBID(gomock.Any()).Return("cluster-id", true, nil)
	db.EXPECT().GetDatabaseIdentifier(gomock.Any()).Return("cluster-id", nil)

	c := New("node-1", db, adapter)
	c.StartMonitors = func(context.Context) error { return nil }
	c.InstallWatches = func(context.Context) error { return nil }
	c.PublishConnInfo = func(context.Context) error { return nil }
	c.ClearInitializing = func() {}
	c.Healthy = func() bool { return true }

	_, err := c.Initialize(context.Background())

	var fatal *FatalError
	assert.ErrorAs(t, err, &fatal)
	assert.Equal(t, 1, fatal.Code)
}

func TestInitialize_MasterLockConfirmed_ProceedsToStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := dcs.NewMockAdapter(ctrl)
	db := dbctl.NewMockController(ctrl)

	adapter.EXPECT().GetDBID(gomock.Any()).Return("cluster-id", true, nil)
	db.EXPECT().GetDatabaseIdentifier(gomock.Any()).Return("cluster-id", nil)
	db.EXPECT().ReplicationRole(gomock.Any()).Return(dbctl.RoleMaster, nil)
	adapter.EXPECT().Lock(gomock.Any(), "master").Return(true, nil)
	db.EXPECT().Start(gomock.Any()).Return(nil)

	c := New("node-1", db, adapter)
	c.StartMonitors = func(context.Context) error { return nil }
	c.InstallWatches = func(context.Context) error { return nil }
	c.PublishConnInfo = func(context.Context) error { return nil }
	cleared := false
	c.ClearInitializing = func() { cleared = true }
	c.Healthy = func() bool { return true }
	var publishedRole dbctl.Role
	c.PublishRole = func(_ context.Context, role dbctl.Role) error {
		publishedRole = role
		return nil
	}

	outcome, err := c.Initialize(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, Outcome{}, outcome)
	assert.True(t, cleared)
	assert.Equal(t, dbctl.RoleMaster, publishedRole)
}
