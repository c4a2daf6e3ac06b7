package split

import (
	"math"
	"slices"
)

// RawAllocation is one (cl, el, tier) cell before any rounding.  Validators
// and Machines are the fractional ideals for the cell.
type RawAllocation struct {
	CLName     string
	ELName     string
	Tier       string
	Validators float64
	Machines   float64
}

// TierTarget carries the integer totals a tier must hit exactly after
// apportionment.
type TierTarget struct {
	Name       string
	Validators int
	Machines   int
}

// Plan is the planner output: every cell of the cross product with its
// fractional ideals, plus the per-tier integer targets.  Cells appear grouped
// by tier (in config order) and sorted by (cl, el) within a tier, so the
// downstream apportionment is deterministic regardless of map iteration.
type Plan struct {
	Raw     []RawAllocation
	Targets []TierTarget
}

func (p *Plan) Target(tier string) (TierTarget, bool) {
	for _, t := range p.Targets {
		if t.Name == tier {
			return t, true
		}
	}
	return TierTarget{}, false
}

// TierCells returns the raw allocations belonging to one tier.
func (p *Plan) TierCells(tier string) []RawAllocation {
	var cells []RawAllocation
	for _, r := range p.Raw {
		if r.Tier == tier {
			cells = append(cells, r)
		}
	}
	return cells
}

// BuildPlan validates the config and computes the fractional allocation of
// every cell.  Pure - no rounding beyond the once-per-tier validator floor
// and the tier machine target itself happens here.
func BuildPlan(cfg Config) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clNames := sortedKeys(cfg.CLClients)
	elNames := sortedKeys(cfg.ELClients)

	var totalMachines float64
	if cfg.Strategy == StrategyShareOfTotal {
		totalMachines = float64(cfg.TotalValidators) / float64(cfg.ValidatorsPerMachine)
	}

	plan := &Plan{}
	for _, tier := range cfg.Tiers {
		// Floored once per tier, never per cell.
		vTarget := int(float64(cfg.TotalValidators) * tier.ValidatorShare)

		// The fractional machine pool feeds the per-cell ideals; the integer
		// target is what apportionment must sum to.
		var machinePool float64
		switch cfg.Strategy {
		case StrategyFixedCount:
			machinePool = float64(tier.MachineCount)
		case StrategyShareOfTotal:
			machinePool = totalMachines * tier.MachineShare
		}
		mTarget := int(math.Floor(machinePool + 0.5))

		plan.Targets = append(plan.Targets, TierTarget{
			Name:       tier.Name,
			Validators: vTarget,
			Machines:   mTarget,
		})

		for _, cl := range clNames {
			for _, el := range elNames {
				weight := cfg.CLClients[cl] * cfg.ELClients[el]
				plan.Raw = append(plan.Raw, RawAllocation{
					CLName:     cl,
					ELName:     el,
					Tier:       tier.Name,
					Validators: float64(vTarget) * weight,
					Machines:   machinePool * weight,
				})
			}
		}
	}
	return plan, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
