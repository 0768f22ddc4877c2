package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DecodesTOMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.toml")
	assert.NoError(t, os.WriteFile(path, []byte(`
[deadman]
group = "cluster-a"
plugins = ["etcd", "postgres"]

[postgres]
data-dir = "/data/pg"
`), 0o600))

	var cfg Agent
	assert.NoError(t, Load(path, "", &cfg))

	assert.Equal(t, "cluster-a", cfg.Deadman.Group)
	assert.Equal(t, []string{"etcd", "postgres"}, cfg.Deadman.Plugins)
	assert.Equal(t, "/data/pg", cfg.Postgres.DataDir)
	// tick-time wasn't set in the file, so the default fills it in.
	assert.Equal(t, NewDefaultAgent().Deadman.TickTime, cfg.Deadman.TickTime)
	assert.NotEmpty(t, cfg.DCS.Endpoints)
}

func TestLoad_FallsBackToDefaultPath(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "default.toml")
	assert.NoError(t, os.WriteFile(defaultPath, []byte(`
[deadman]
group = "fallback"
`), 0o600))

	var cfg Agent
	assert.NoError(t, Load("", defaultPath, &cfg))
	assert.Equal(t, "fallback", cfg.Deadman.Group)
}

func TestNewDefaultAgentTOML_RoundTripsThroughDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.toml")
	assert.NoError(t, os.WriteFile(path, []byte(NewDefaultAgentTOML()), 0o600))

	var cfg Agent
	assert.NoError(t, Load(path, "", &cfg))
	assert.Equal(t, *NewDefaultAgent(), cfg)
}
