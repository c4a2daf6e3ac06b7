package main

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethfleet/nodesplit/internal/lib/split"
)

// A daemon started without a config file computes from the config it was
// handed at startup instead of polling the filesystem.
func TestDaemonRecomputeWithoutConfigFile(t *testing.T) {
	cfg := split.DefaultConfig()
	d := &Daemon{
		logger:   slog.Default(),
		cfgPath:  "",
		fallback: &cfg,
		interval: time.Minute,
	}

	require.NoError(t, d.recompute())

	d.RLock()
	defer d.RUnlock()
	assert.Contains(t, d.rendered, `variable "prysm_geth"`)
	assert.Contains(t, d.summary, "# RESULTS")
	assert.Contains(t, d.summary, "# Total validators allocated: 15000")
}

func TestDaemonRecomputeFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodesplit.yaml")
	cfg := split.DefaultConfig()
	cfg.TotalValidators = 9000
	require.NoError(t, SavePlanConfig(path, &cfg))

	d := &Daemon{
		logger:   slog.Default(),
		cfgPath:  path,
		interval: time.Minute,
	}

	require.NoError(t, d.recompute())

	d.RLock()
	defer d.RUnlock()
	assert.Contains(t, d.summary, "# Total validators allocated: 9000")
}
