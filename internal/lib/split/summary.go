package split

import (
	"fmt"
	"sort"
	"strings"
)

var summaryBanner = "# " + strings.Repeat("=", 70) + "\n"

// Summary renders the human-readable, comment-prefixed report that precedes
// the variable blocks: a configuration echo, then actual vs target
// percentages per tier with signed deltas and the per-combination machine
// breakdown.  Entirely deterministic for a given config and result.
func Summary(cfg Config, plan *Plan, res *Result) string {
	var b strings.Builder

	b.WriteString(summaryBanner)
	b.WriteString("# CONFIGURATION\n")
	b.WriteString(summaryBanner)
	fmt.Fprintf(&b, "# Total validators target: %d\n", cfg.TotalValidators)
	fmt.Fprintf(&b, "# Strategy: %s, rounding policy: %s\n", cfg.Strategy, cfg.Policy)

	b.WriteString("# Target validator distribution: ")
	var parts []string
	for _, tier := range cfg.Tiers {
		parts = append(parts, fmt.Sprintf("%s=%.0f%%", tier.Name, tier.ValidatorShare*100))
	}
	b.WriteString(strings.Join(parts, ", ") + "\n")

	switch cfg.Strategy {
	case StrategyFixedCount:
		b.WriteString("# Machine counts (fixed): ")
		parts = parts[:0]
		for _, tier := range cfg.Tiers {
			parts = append(parts, fmt.Sprintf("%s=%d", tier.Name, tier.MachineCount))
		}
		b.WriteString(strings.Join(parts, ", ") + "\n")
	case StrategyShareOfTotal:
		fmt.Fprintf(&b, "# Validators per machine (reference): %d\n", cfg.ValidatorsPerMachine)
		b.WriteString("# Target machine distribution: ")
		parts = parts[:0]
		for _, tier := range cfg.Tiers {
			parts = append(parts, fmt.Sprintf("%s=%.0f%%", tier.Name, tier.MachineShare*100))
		}
		b.WriteString(strings.Join(parts, ", ") + "\n")
	}

	b.WriteString("#\n")
	b.WriteString("# Validators per machine by tier (theoretical):\n")
	for _, target := range plan.Targets {
		vpm := 0.0
		if target.Machines > 0 {
			vpm = float64(target.Validators) / float64(target.Machines)
		}
		fmt.Fprintf(&b, "#   %s: %.0f validators/machine\n", target.Name, vpm)
	}

	b.WriteString(summaryBanner)
	b.WriteString("# RESULTS\n")
	b.WriteString(summaryBanner)
	totalValidators := res.TotalValidators()
	totalMachines := res.TotalMachines()
	fmt.Fprintf(&b, "# Total validators allocated: %d\n", totalValidators)
	fmt.Fprintf(&b, "# Total machines: %d\n", totalMachines)

	validatorsByTier := map[string]int{}
	machinesByTier := map[string]int{}
	for _, a := range res.Allocations {
		validatorsByTier[a.Tier] += a.Validators
		machinesByTier[a.Tier] += a.Machines
	}

	if totalValidators > 0 {
		b.WriteString("#\n# Actual validator distribution:\n")
		for _, tier := range cfg.Tiers {
			count := validatorsByTier[tier.Name]
			pct := float64(count) / float64(totalValidators) * 100
			targetPct := tier.ValidatorShare * 100
			fmt.Fprintf(&b, "#   %s: %d (%.1f%%) [target: %.0f%%, diff: %+.1f%%]\n",
				tier.Name, count, pct, targetPct, pct-targetPct)
		}
	}
	if totalMachines > 0 {
		b.WriteString("#\n# Actual machine distribution:\n")
		for _, tier := range cfg.Tiers {
			count := machinesByTier[tier.Name]
			pct := float64(count) / float64(totalMachines) * 100
			var line string
			if cfg.Strategy == StrategyShareOfTotal {
				targetPct := tier.MachineShare * 100
				line = fmt.Sprintf("#   %s: %d (%.1f%%) [target: %.0f%%, diff: %+.1f%%]\n",
					tier.Name, count, pct, targetPct, pct-targetPct)
			} else {
				line = fmt.Sprintf("#   %s: %d (%.1f%%) [target: %d]\n",
					tier.Name, count, pct, tierMachineCount(cfg, tier.Name))
			}
			b.WriteString(line)
		}
	}

	b.WriteString("#\n# Client combination machines:\n")
	for _, line := range combinationLines(cfg, res) {
		b.WriteString(line)
	}

	for _, tier := range cfg.Tiers {
		if n, ok := res.Unallocated[tier.Name]; ok && n > 0 {
			fmt.Fprintf(&b, "#\n# Unallocated validators in tier %s: %d\n", tier.Name, n)
		}
	}

	if deviation := cfg.TotalValidators - totalValidators; abs(deviation) > AllocationTolerance {
		fmt.Fprintf(&b, "#\n# WARNING: allocated %d validators out of %d\n", totalValidators, cfg.TotalValidators)
	}

	return b.String()
}

func tierMachineCount(cfg Config, name string) int {
	for _, t := range cfg.Tiers {
		if t.Name == name {
			return t.MachineCount
		}
	}
	return 0
}

// combinationLines reports, per cl-el pair, the total machines broken out by
// tier, sorted by combination name.
func combinationLines(cfg Config, res *Result) []string {
	byCombo := map[string]map[string]int{}
	for _, a := range res.Allocations {
		key := strings.ToLower(a.CLName) + "-" + strings.ToLower(a.ELName)
		if byCombo[key] == nil {
			byCombo[key] = map[string]int{}
		}
		byCombo[key][a.Tier] += a.Machines
	}
	combos := make([]string, 0, len(byCombo))
	for key := range byCombo {
		combos = append(combos, key)
	}
	sort.Strings(combos)

	var lines []string
	for _, key := range combos {
		counts := byCombo[key]
		var total int
		var parts []string
		for _, tier := range cfg.Tiers {
			total += counts[tier.Name]
			parts = append(parts, fmt.Sprintf("%s=%d", tier.Name, counts[tier.Name]))
		}
		if total == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("#   %s: %d total (%s)\n", key, total, strings.Join(parts, ", ")))
	}
	return lines
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
