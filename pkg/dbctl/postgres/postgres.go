// Package postgres implements dbctl.Controller for a local PostgreSQL
// instance managed via pg_ctl/initdb/pg_basebackup, following the shape
// of the original zgres AptPostgresqlPlugin (original_source/zgres/debian.py):
// one struct per cluster, config/data-dir paths derived from version and
// cluster name, operations shelling out to the PostgreSQL binaries.
package postgres

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lindb/common/pkg/logger"

	"github.com/viki00/zgres/pkg/dbctl"
)

var log = logger.GetLogger("Deadman", "Postgres")

// Config locates the binaries and directories this adapter controls.
type Config struct {
	// BinDir holds pg_ctl, initdb, pg_controldata, pg_basebackup, pg_rewind.
	BinDir string
	// DataDir is the instance's data directory.
	DataDir string
	// ArchiveDir is where Backup places base backups and Restore reads
	// them from.
	ArchiveDir string
}

// Controller implements dbctl.Controller against a local instance.
type Controller struct {
	cfg Config
}

// New creates a postgres Controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

func (c *Controller) bin(name string) string {
	return filepath.Join(c.cfg.BinDir, name)
}

func (c *Controller) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s %v: %w: %s", name, args, err, out.String())
	}
	return out.String(), nil
}

// Start starts postgresql if it is not already running.
func (c *Controller) Start(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(c.cfg.DataDir, "postmaster.pid")); err == nil {
		return nil
	}
	_, err := c.run(ctx, c.bin("pg_ctl"), "start", "-w", "-D", c.cfg.DataDir)
	return err
}

// Stop stops postgresql if it is not already stopped.
func (c *Controller) Stop(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(c.cfg.DataDir, "postmaster.pid")); os.IsNotExist(err) {
		return nil
	}
	_, err := c.run(ctx, c.bin("pg_ctl"), "stop", "-w", "-m", "fast", "-D", c.cfg.DataDir)
	return err
}

// InitDB creates a new postgresql database.
func (c *Controller) InitDB(ctx context.Context) error {
	_, err := c.run(ctx, c.bin("initdb"), "-D", c.cfg.DataDir)
	return err
}

// Reset makes the existing database unusable so it cannot start again by
// mistake: move the data directory aside. Callers then re-bootstrap on
// the next restart.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		log.Warn("stop before reset failed, continuing", logger.Error(err))
	}
	dest := c.cfg.DataDir + ".reset"
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	return os.Rename(c.cfg.DataDir, dest)
}

// Backup creates a base backup and places it where replicas can fetch it.
func (c *Controller) Backup(ctx context.Context) error {
	_, err := c.run(ctx, c.bin("pg_basebackup"), "-D", c.cfg.ArchiveDir, "-F", "tar", "-X", "stream")
	return err
}

// Restore restores from the most recent base backup.
func (c *Controller) Restore(ctx context.Context) error {
	if _, err := os.Stat(c.cfg.ArchiveDir); err != nil {
		return fmt.Errorf("no archive to restore from: %w", err)
	}
	if err := os.RemoveAll(c.cfg.DataDir); err != nil {
		return err
	}
	if err := os.MkdirAll(c.cfg.DataDir, 0o700); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "tar", "-C", c.cfg.DataDir, "-xf", filepath.Join(c.cfg.ArchiveDir, "base.tar"))
	return cmd.Run()
}

// SetupReplication writes a standby signal/primary_conninfo pointing at
// primaryConnInfo, or, with a nil map, reconfigures as a standby of
// whichever primary_conninfo is already on disk.
func (c *Controller) SetupReplication(ctx context.Context, primaryConnInfo map[string]string) error {
	if primaryConnInfo != nil {
		var b strings.Builder
		for k, v := range primaryConnInfo {
			fmt.Fprintf(&b, "%s=%s ", k, v)
		}
		conf := fmt.Sprintf("primary_conninfo = '%s'\n", strings.TrimSpace(b.String()))
		if err := os.WriteFile(filepath.Join(c.cfg.DataDir, "postgresql.auto.conf"), []byte(conf), 0o600); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(c.cfg.DataDir, "standby.signal"), nil, 0o600)
}

// StopReplication promotes the standby to a standalone read-write
// instance.
func (c *Controller) StopReplication(ctx context.Context) error {
	_, err := c.run(ctx, c.bin("pg_ctl"), "promote", "-w", "-D", c.cfg.DataDir)
	return err
}

// Reload asks postgresql to reload its configuration in place.
func (c *Controller) Reload(ctx context.Context) error {
	_, err := c.run(ctx, c.bin("pg_ctl"), "reload", "-D", c.cfg.DataDir)
	return err
}

// GetDatabaseIdentifier reads pg_controldata's "Database system
// identifier:" field.
//
// The original zgres sample adapter (original_source/zgres/debian.py)
// parsed the line beginning with "Data page checksum version:" here —
// a copy-paste bug (spec.md §9's open question). This is the correct
// field.
func (c *Controller) GetDatabaseIdentifier(ctx context.Context) (string, error) {
	if _, err := os.Stat(c.cfg.DataDir); os.IsNotExist(err) {
		return "", nil
	}
	out, err := c.run(ctx, c.bin("pg_controldata"), c.cfg.DataDir)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Database system identifier:") {
			_, id, _ := strings.Cut(line, ":")
			return strings.TrimSpace(id), nil
		}
	}
	return "", fmt.Errorf("postgres: could not find database system identifier in pg_controldata output")
}

// GetTimeline reads pg_controldata's "Latest checkpoint's TimeLineID:" field.
func (c *Controller) GetTimeline(ctx context.Context) (int64, error) {
	out, err := c.run(ctx, c.bin("pg_controldata"), c.cfg.DataDir)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Latest checkpoint's TimeLineID:") {
			_, v, _ := strings.Cut(line, ":")
			var n int64
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err != nil {
				return 0, err
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("postgres: could not find timeline in pg_controldata output")
}

// ReplicationRole reports whether the local instance is not running,
// primary, or standby.
func (c *Controller) ReplicationRole(ctx context.Context) (dbctl.Role, error) {
	if _, err := os.Stat(filepath.Join(c.cfg.DataDir, "postmaster.pid")); os.IsNotExist(err) {
		return dbctl.RoleNone, nil
	}
	if _, err := os.Stat(filepath.Join(c.cfg.DataDir, "standby.signal")); err == nil {
		return dbctl.RoleReplica, nil
	}
	return dbctl.RoleMaster, nil
}

var _ dbctl.Controller = (*Controller)(nil)
