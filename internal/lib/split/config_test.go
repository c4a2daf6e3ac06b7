package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Strategy = StrategyShareOfTotal
	require.NoError(t, cfg.Validate(), "default tier table must also carry valid machine shares")
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"zero validators", func(cfg *Config) { cfg.TotalValidators = 0 }},
		{"negative validators", func(cfg *Config) { cfg.TotalValidators = -5 }},
		{"unknown strategy", func(cfg *Config) { cfg.Strategy = "banana" }},
		{"unknown policy", func(cfg *Config) { cfg.Policy = "banana" }},
		{"no tiers", func(cfg *Config) { cfg.Tiers = nil }},
		{"duplicate tier", func(cfg *Config) { cfg.Tiers = append(cfg.Tiers, cfg.Tiers[0]) }},
		{"tier share out of range", func(cfg *Config) { cfg.Tiers[0].ValidatorShare = 1.5 }},
		{"tier shares not summing", func(cfg *Config) { cfg.Tiers[0].ValidatorShare = 0.5 }},
		{"negative machine count", func(cfg *Config) { cfg.Tiers[1].MachineCount = -1 }},
		{"cl weight out of range", func(cfg *Config) { cfg.CLClients["prysm"] = -0.25 }},
		{"cl weights not summing", func(cfg *Config) { cfg.CLClients["prysm"] = 0.35 }},
		{"el weights not summing", func(cfg *Config) { delete(cfg.ELClients, "geth") }},
		{"zero vpm with share strategy", func(cfg *Config) {
			cfg.Strategy = StrategyShareOfTotal
			cfg.ValidatorsPerMachine = 0
		}},
		{"machine shares not summing", func(cfg *Config) {
			cfg.Strategy = StrategyShareOfTotal
			cfg.Tiers[0].MachineShare = 0.5
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadConfig)
		})
	}
}

func TestValidateAllowsEmptyWeightTable(t *testing.T) {
	// An empty dimension is a reportable condition downstream, not a config
	// error - every tier just ends up unallocated.
	cfg := DefaultConfig()
	cfg.CLClients = map[string]float64{}
	assert.NoError(t, cfg.Validate())
}

func TestParseStrategyAndPolicy(t *testing.T) {
	s, err := ParseStrategy("fixed")
	require.NoError(t, err)
	assert.Equal(t, StrategyFixedCount, s)

	_, err = ParseStrategy("proportional")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	p, err := ParsePolicy("threshold")
	require.NoError(t, err)
	assert.Equal(t, PolicyThreshold, p)

	_, err = ParsePolicy("rounding")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
