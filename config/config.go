// Package config defines the agent's configuration surface: a TOML
// file overlaid with environment variables, following config/storage.go's
// TOML()-rendering struct pattern. The "deadman" section (spec.md §6)
// carries tick_time and the ordered plugin list; dcs and postgres
// locate the external collaborators spec.md §1 scopes out of the core.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v7"
	"github.com/lindb/common/pkg/logger"
	"github.com/lindb/common/pkg/ltoml"
)

// Version is set at build time via -ldflags.
var Version = "unknown"

// Deadman is the agent's own tuning knobs (spec.md §6).
type Deadman struct {
	// TickTime scales every timeout in the agent (default 2s).
	TickTime ltoml.Duration `env:"TICK_TIME" toml:"tick-time"`
	// Group namespaces this cluster's DCS records (spec.md §6).
	Group string `env:"GROUP" toml:"group"`
	// Plugins is an ordered list of capability-provider names. It is
	// decoded from the config but not read by the run command, which
	// registers only its fixed set of default providers.
	Plugins []string `env:"PLUGINS" envSeparator:"," toml:"plugins"`
}

// TOML renders Deadman as a TOML fragment.
func (d *Deadman) TOML() string {
	return fmt.Sprintf(`
## Agent-wide tuning (spec section 6).
[deadman]
## scales every timeout in the agent.
## Default: %s
## Env: ZGRES_DEADMAN_TICK_TIME
tick-time = "%s"
## namespaces this cluster's DCS records from any other cluster sharing
## the same DCS.
## Default: %s
## Env: ZGRES_DEADMAN_GROUP
group = "%s"
## ordered list of capability-provider names; not read by the run
## command, which registers only its default providers.
## Default: %s
## Env: ZGRES_DEADMAN_PLUGINS
plugins = [%s]`,
		d.TickTime.String(),
		d.TickTime.String(),
		d.Group,
		d.Group,
		quoteList(d.Plugins),
		quoteList(d.Plugins),
	)
}

// DCS locates the coordination service cluster.
type DCS struct {
	Endpoints   []string       `env:"ENDPOINTS" envSeparator:"," toml:"endpoints"`
	DialTimeout ltoml.Duration `env:"DIAL_TIMEOUT" toml:"dial-timeout"`
	SessionTTL  ltoml.Duration `env:"SESSION_TTL" toml:"session-ttl"`
}

// TOML renders DCS as a TOML fragment.
func (d *DCS) TOML() string {
	return fmt.Sprintf(`
## Distributed coordination service connection (spec section 4.4).
[dcs]
## Default: %s
## Env: ZGRES_DCS_ENDPOINTS
endpoints = [%s]
## Default: %s
## Env: ZGRES_DCS_DIAL_TIMEOUT
dial-timeout = "%s"
## lease TTL backing every ephemeral key and lock this node creates.
## Default: %s
## Env: ZGRES_DCS_SESSION_TTL
session-ttl = "%s"`,
		quoteList(d.Endpoints),
		quoteList(d.Endpoints),
		d.DialTimeout.String(),
		d.DialTimeout.String(),
		d.SessionTTL.String(),
		d.SessionTTL.String(),
	)
}

// Postgres locates the binaries and directories the database-control
// contract (spec.md §6) operates on.
type Postgres struct {
	BinDir     string `env:"BIN_DIR" toml:"bin-dir"`
	DataDir    string `env:"DATA_DIR" toml:"data-dir"`
	ArchiveDir string `env:"ARCHIVE_DIR" toml:"archive-dir"`
}

// TOML renders Postgres as a TOML fragment.
func (p *Postgres) TOML() string {
	return fmt.Sprintf(`
## Local PostgreSQL instance this agent controls.
[postgres]
## Default: %s
## Env: ZGRES_POSTGRES_BIN_DIR
bin-dir = "%s"
## Default: %s
## Env: ZGRES_POSTGRES_DATA_DIR
data-dir = "%s"
## Default: %s
## Env: ZGRES_POSTGRES_ARCHIVE_DIR
archive-dir = "%s"`,
		p.BinDir, p.BinDir,
		p.DataDir, p.DataDir,
		p.ArchiveDir, p.ArchiveDir,
	)
}

// ConnInfo seeds the static connectinfo.Static provider: the host/port
// this node advertises to clients (spec.md §3's "connection-info
// keys"). Cloud IP discovery is the external collaborator spec.md §1
// scopes out; this is the configuration-file-driven fallback.
type ConnInfo struct {
	Host string `env:"HOST" toml:"host"`
	Port int    `env:"PORT" toml:"port"`
}

// TOML renders ConnInfo as a TOML fragment.
func (c *ConnInfo) TOML() string {
	return fmt.Sprintf(`
## Connection info this node advertises to clients.
[conn-info]
## Default: %s
## Env: ZGRES_CONN_INFO_HOST
host = "%s"
## Default: %d
## Env: ZGRES_CONN_INFO_PORT
port = %d`,
		c.Host, c.Host, c.Port, c.Port,
	)
}

// Agent is the agent's complete configuration.
type Agent struct {
	Deadman  Deadman        `envPrefix:"DEADMAN_" toml:"deadman"`
	DCS      DCS            `envPrefix:"DCS_" toml:"dcs"`
	Postgres Postgres       `envPrefix:"POSTGRES_" toml:"postgres"`
	ConnInfo ConnInfo       `envPrefix:"CONN_INFO_" toml:"conn-info"`
	Logging  logger.Setting `envPrefix:"LOGGING_" toml:"logging"`
}

// TOML returns Agent's complete toml config string.
func (a *Agent) TOML() string {
	return fmt.Sprintf(`%s
%s
%s
%s
%s`,
		a.Deadman.TOML(),
		a.DCS.TOML(),
		a.Postgres.TOML(),
		a.ConnInfo.TOML(),
		a.Logging.TOML("ZGRES"),
	)
}

// NewDefaultAgent returns a new default Agent config.
func NewDefaultAgent() *Agent {
	return &Agent{
		Deadman: Deadman{
			TickTime: ltoml.Duration(2 * time.Second),
			Group:    "default",
			Plugins:  []string{},
		},
		DCS: DCS{
			Endpoints:   []string{"127.0.0.1:2379"},
			DialTimeout: ltoml.Duration(5 * time.Second),
			SessionTTL:  ltoml.Duration(20 * time.Second),
		},
		Postgres: Postgres{
			BinDir:     "/usr/lib/postgresql/bin",
			DataDir:    "/var/lib/postgresql/data",
			ArchiveDir: "/var/lib/postgresql/archive",
		},
	}
}

// NewDefaultAgentTOML creates the agent's default toml config as a string.
func NewDefaultAgentTOML() string {
	return NewDefaultAgent().TOML()
}

// Load decodes path (falling back to defaultPath if path is empty) into
// cfg, then overlays environment variables prefixed ZGRES_, following
// the overlay order of the teacher's LoadAndSetStorageConfig.
func Load(path, defaultPath string, cfg *Agent) error {
	file := path
	if file == "" {
		file = defaultPath
	}
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", file, err)
	}
	if err := env.Parse(cfg, env.Options{Prefix: "ZGRES_"}); err != nil {
		return fmt.Errorf("config: parse environment overrides: %w", err)
	}
	return checkAgentCfg(cfg)
}

func checkAgentCfg(cfg *Agent) error {
	defaults := NewDefaultAgent()
	if cfg.Deadman.TickTime <= 0 {
		cfg.Deadman.TickTime = defaults.Deadman.TickTime
	}
	if cfg.Deadman.Group == "" {
		cfg.Deadman.Group = defaults.Deadman.Group
	}
	if len(cfg.DCS.Endpoints) == 0 {
		cfg.DCS.Endpoints = defaults.DCS.Endpoints
	}
	if cfg.DCS.DialTimeout <= 0 {
		cfg.DCS.DialTimeout = defaults.DCS.DialTimeout
	}
	if cfg.DCS.SessionTTL <= 0 {
		cfg.DCS.SessionTTL = defaults.DCS.SessionTTL
	}
	return nil
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}
