package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lindb/common/pkg/logger"
	"github.com/lindb/common/pkg/ltoml"
	"github.com/spf13/cobra"

	"github.com/viki00/zgres/config"
	"github.com/viki00/zgres/internal/agent"
	"github.com/viki00/zgres/pkg/capability"
	"github.com/viki00/zgres/pkg/connectinfo"
	"github.com/viki00/zgres/pkg/dbctl/postgres"
	"github.com/viki00/zgres/pkg/dcs/etcdadapter"
	"github.com/viki00/zgres/pkg/document"
	"github.com/viki00/zgres/pkg/nodeid"
	"github.com/viki00/zgres/pkg/ranker"
)

const (
	agentCfgName        = "zgres.toml"
	agentLogFileName    = "zgres.log"
	defaultAgentCfgFile = currentDir + agentCfgName
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "starts the failover agent",
		RunE:  serveAgent,
	}
	runCmd.PersistentFlags().StringVar(&cfg, "config", "",
		fmt.Sprintf("agent config file path, default is %s", defaultAgentCfgFile))

	initCfgCmd := &cobra.Command{
		Use:   "init-config",
		Short: "create a new default agent config",
		RunE: func(*cobra.Command, []string) error {
			path := cfg
			if path == "" {
				path = defaultAgentCfgFile
			}
			if err := checkExistenceOf(path); err != nil {
				return err
			}
			return ltoml.WriteConfig(path, config.NewDefaultAgentTOML())
		},
	}
	runCmd.AddCommand(initCfgCmd)
	return runCmd
}

func checkExistenceOf(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

func newCtxWithSignals() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func serveAgent(*cobra.Command, []string) error {
	agentCfg := config.Agent{}
	if err := config.Load(cfg, defaultAgentCfgFile, &agentCfg); err != nil {
		return err
	}
	if err := logger.InitLogger(agentCfg.Logging, agentLogFileName); err != nil {
		return fmt.Errorf("init logger error: %s", err)
	}

	ctx := newCtxWithSignals()

	registry := capability.NewRegistry(capability.Catalog())
	if err := registerDefaultCapabilities(ctx, registry, &agentCfg); err != nil {
		return fmt.Errorf("register capability providers: %w", err)
	}

	a, err := agent.New(ctx, &agentCfg, registry)
	if err != nil {
		return fmt.Errorf("construct agent: %w", err)
	}
	a.Run(ctx)
	return nil
}

// registerDefaultCapabilities binds the agent's shipped default
// providers: the etcd DCS adapter, the PostgreSQL process-control
// controller, the hostname node-identity provider, the static
// conn-info provider seeded from config, and the oldest-willing-replica
// ranker. agentCfg.Deadman.Plugins is not consulted: these defaults are
// the only providers registered.
func registerDefaultCapabilities(ctx context.Context, registry *capability.Registry, agentCfg *config.Agent) error {
	nodeIdentity := &nodeid.Hostname{}
	myID, err := nodeIdentity.MyID(ctx)
	if err != nil {
		return fmt.Errorf("resolve node identity: %w", err)
	}

	adapter, err := etcdadapter.New(ctx, etcdadapter.Config{
		Endpoints:   agentCfg.DCS.Endpoints,
		DialTimeout: time.Duration(agentCfg.DCS.DialTimeout),
		Group:       agentCfg.Deadman.Group,
		NodeID:      myID,
		SessionTTL:  time.Duration(agentCfg.DCS.SessionTTL),
	})
	if err != nil {
		return fmt.Errorf("connect to dcs: %w", err)
	}

	db := postgres.New(postgres.Config{
		BinDir:     agentCfg.Postgres.BinDir,
		DataDir:    agentCfg.Postgres.DataDir,
		ArchiveDir: agentCfg.Postgres.ArchiveDir,
	})

	if err := registry.Register(capability.DCSLock, "etcdadapter", adapter); err != nil {
		return err
	}
	if err := registry.Register(capability.DBControl, "postgres", db); err != nil {
		return err
	}
	if err := registry.Register(capability.NodeIdentity, "hostname", nodeIdentity); err != nil {
		return err
	}
	if err := registry.Register(capability.ReplicaRanker, "by-willing-age", ranker.ByWillingAge{}); err != nil {
		return err
	}
	if err := registry.Register(capability.ConnInfoSource, "static", connectinfo.Static{
		Info: document.Document{
			"host": agentCfg.ConnInfo.Host,
			"port": int64(agentCfg.ConnInfo.Port),
		},
	}); err != nil {
		return err
	}
	return nil
}
