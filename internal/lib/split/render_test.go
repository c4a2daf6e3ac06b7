package split

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBlockShape(t *testing.T) {
	res := &Result{
		Allocations: []Allocation{
			{CLName: "prysm", ELName: "geth", Tier: TierDefault, Validators: 100, Machines: 3},
			{CLName: "prysm", ELName: "geth", Tier: TierSuper, Validators: 50, Machines: 1},
		},
	}
	out := Render(res)

	expected := `variable "prysm_geth" {
  default = {
    name            = "prysm-geth"
    count           = 3
    validator_start = 0
    validator_end   = 100
  }
}

variable "prysm_geth_super" {
  default = {
    name            = "prysm-geth-super"
    count           = 1
    validator_start = 100
    validator_end   = 150
  }
}
`
	assert.Equal(t, expected, out)
}

func TestRenderSkipsEmptyCells(t *testing.T) {
	res := &Result{
		Allocations: []Allocation{
			{CLName: "prysm", ELName: "geth", Tier: TierDefault, Validators: 100, Machines: 3},
			{CLName: "teku", ELName: "besu", Tier: TierDefault, Validators: 0, Machines: 1},
			{CLName: "nimbus", ELName: "reth", Tier: TierDefault, Validators: 40, Machines: 0},
		},
	}
	out := Render(res)
	assert.NotContains(t, out, "teku_besu")
	assert.NotContains(t, out, "nimbus_reth")
	assert.Contains(t, out, `variable "prysm_geth"`)
}

func TestRenderSortOrder(t *testing.T) {
	res := &Result{
		Allocations: []Allocation{
			{CLName: "Teku", ELName: "besu", Tier: TierDefault, Validators: 10, Machines: 1},
			{CLName: "grandine", ELName: "geth", Tier: TierFull, Validators: 10, Machines: 1},
			{CLName: "grandine", ELName: "geth", Tier: TierDefault, Validators: 10, Machines: 1},
			{CLName: "grandine", ELName: "besu", Tier: TierDefault, Validators: 10, Machines: 1},
		},
	}
	out := Render(res)

	// (cl, el, tier) ascending, case-insensitive.
	first := strings.Index(out, "grandine_besu")
	second := strings.Index(out, "grandine_geth\"")
	third := strings.Index(out, "grandine_geth_full")
	fourth := strings.Index(out, "teku_besu")
	assert.True(t, first < second && second < third && third < fourth,
		"expected sorted block order, got:\n%s", out)
}

func TestRenderZeroValidatorShareTier(t *testing.T) {
	cfg := DefaultConfig()
	for i := range cfg.Tiers {
		switch cfg.Tiers[i].Name {
		case TierDefault:
			cfg.Tiers[i].ValidatorShare = 0.75
		case TierFull:
			cfg.Tiers[i].ValidatorShare = 0.25
		case TierSuper:
			cfg.Tiers[i].ValidatorShare = 0
		}
	}
	require.NoError(t, cfg.Validate())
	plan, err := BuildPlan(cfg)
	require.NoError(t, err)
	res := Apportion(plan, cfg)
	out := Render(res)

	// The tier keeps its machines in the result, so per-tier machine sums stay
	// exact, but validator-less cells never become blocks.
	var superMachines, superValidators int
	for _, a := range res.Allocations {
		if a.Tier == TierSuper {
			superMachines += a.Machines
			superValidators += a.Validators
		}
	}
	assert.Equal(t, 2, superMachines)
	assert.Zero(t, superValidators)
	assert.NotContains(t, out, "_super")

	running := 0
	for _, a := range res.Allocations {
		if a.Machines == 0 || a.Validators <= 0 {
			continue
		}
		require.Equal(t, running, a.ValidatorStart, "%s gap or overlap", a.VariableName())
		running = a.ValidatorEnd
	}
	assert.Equal(t, 15000, running, "emitted ranges still cover every validator")
}

func TestRenderRangesContiguous(t *testing.T) {
	cfg := DefaultConfig()
	plan, err := BuildPlan(cfg)
	require.NoError(t, err)
	res := Apportion(plan, cfg)
	_ = Render(res)

	running := 0
	for _, a := range res.Allocations {
		require.Equal(t, running, a.ValidatorStart, "%s gap or overlap", a.VariableName())
		require.Equal(t, a.ValidatorStart+a.Validators, a.ValidatorEnd)
		require.Greater(t, a.ValidatorEnd, a.ValidatorStart)
		running = a.ValidatorEnd
	}
	assert.Equal(t, 15000, running, "ranges must cover [0, total) with no gaps")
}

func TestRenderIdempotent(t *testing.T) {
	cfg := DefaultConfig()

	run := func() string {
		plan, err := BuildPlan(cfg)
		require.NoError(t, err)
		res := Apportion(plan, cfg)
		return Summary(cfg, plan, res) + "\n" + Render(res)
	}
	assert.Equal(t, run(), run(), "identical inputs must yield byte-identical output")
}

func TestAllocationNames(t *testing.T) {
	testCases := []struct {
		alloc      Allocation
		variable   string
		configName string
	}{
		{Allocation{CLName: "prysm", ELName: "geth", Tier: TierDefault}, "prysm_geth", "prysm-geth"},
		{Allocation{CLName: "prysm", ELName: "geth", Tier: TierFull}, "prysm_geth_full", "prysm-geth-full"},
		{Allocation{CLName: "Lighthouse", ELName: "Nethermind", Tier: TierSuper}, "lighthouse_nethermind_super", "lighthouse-nethermind-super"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.variable, tc.alloc.VariableName())
		assert.Equal(t, tc.configName, tc.alloc.ConfigName())
	}
}

func TestSummaryContents(t *testing.T) {
	cfg := DefaultConfig()
	plan, err := BuildPlan(cfg)
	require.NoError(t, err)
	res := Apportion(plan, cfg)
	_ = Render(res)
	out := Summary(cfg, plan, res)

	assert.Contains(t, out, "# CONFIGURATION")
	assert.Contains(t, out, "# RESULTS")
	assert.Contains(t, out, "# Total validators target: 15000")
	assert.Contains(t, out, "# Total validators allocated: 15000")
	assert.Contains(t, out, "# Total machines: 40")
	assert.Contains(t, out, "default=70%")
	assert.Contains(t, out, "# Client combination machines:")
	assert.NotContains(t, out, "WARNING", "fully allocated run carries no warning line")

	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, "#"), "summary lines must be comment-prefixed: %q", line)
	}
}

func TestSummaryWarnsOnUnallocated(t *testing.T) {
	cfg := DefaultConfig()
	for i := range cfg.Tiers {
		if cfg.Tiers[i].Name == TierSuper {
			cfg.Tiers[i].MachineCount = 0
		}
	}
	plan, err := BuildPlan(cfg)
	require.NoError(t, err)
	res := Apportion(plan, cfg)
	_ = Render(res)
	out := Summary(cfg, plan, res)

	assert.Contains(t, out, "Unallocated validators in tier super: 1500")
	assert.Contains(t, out, "# WARNING: allocated 13500 validators out of 15000")
}
