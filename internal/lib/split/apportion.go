package split

import (
	"fmt"
	"math"
	"sort"
)

// Allocation is a finalized cell: integer machines and validators, plus the
// half-open validator index range assigned by the renderer.
type Allocation struct {
	CLName         string
	ELName         string
	Tier           string
	Validators     int
	Machines       int
	ValidatorStart int
	ValidatorEnd   int
}

// Result is the apportioner output.  Allocations only contains cells that
// kept at least one machine; validators belonging to tiers that could not
// place any machine are accounted in Unallocated rather than dropped.
type Result struct {
	Allocations []Allocation
	Unallocated map[string]int
	Warnings    []string
}

// TotalValidators sums the validators of every surviving allocation.
func (r *Result) TotalValidators() int {
	var sum int
	for _, a := range r.Allocations {
		sum += a.Validators
	}
	return sum
}

// TotalMachines sums the machines of every surviving allocation.
func (r *Result) TotalMachines() int {
	var sum int
	for _, a := range r.Allocations {
		sum += a.Machines
	}
	return sum
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Apportion converts the fractional plan into integer allocations, tier by
// tier.  Rounding never mixes cells across tiers.  Two invariants hold on
// return for every tier that placed at least one machine: the machine sum
// equals the tier machine target, and the validator sum equals the tier
// validator target.
func Apportion(plan *Plan, cfg Config) *Result {
	res := &Result{Unallocated: map[string]int{}}

	for _, target := range plan.Targets {
		cells := plan.TierCells(target.Name)
		if len(cells) == 0 {
			if target.Validators > 0 || target.Machines > 0 {
				res.Unallocated[target.Name] = target.Validators
				res.warnf("tier %s has no client combinations; %d validators and %d machines unallocated",
					target.Name, target.Validators, target.Machines)
			}
			continue
		}

		var machines []int
		switch cfg.Policy {
		case PolicyThreshold:
			machines = thresholdMachines(cells, target, cfg.Threshold, res)
		default:
			machines = largestRemainderMachines(cells, target, res)
		}

		// Cells that ended with zero machines orphan their validators into a
		// tier-level pool; the pool is spread over the surviving cells below.
		var (
			orphaned int
			live     []Allocation
		)
		for i, c := range cells {
			validators := int(c.Validators)
			if machines[i] == 0 {
				orphaned += validators
				continue
			}
			live = append(live, Allocation{
				CLName:     c.CLName,
				ELName:     c.ELName,
				Tier:       c.Tier,
				Validators: validators,
				Machines:   machines[i],
			})
		}
		if len(live) == 0 {
			if target.Validators > 0 {
				res.Unallocated[target.Name] = target.Validators
				res.warnf("tier %s received no machines; %d validators unallocated", target.Name, target.Validators)
			}
			continue
		}

		if orphaned > 0 {
			each := orphaned / len(live)
			for i := range live {
				live[i].Validators += each
			}
			if rem := orphaned - each*len(live); rem > 0 {
				live[largestCell(live)].Validators += rem
			}
		}

		// Correction pass: successive flooring loses a handful of validators
		// per tier.  The residual lands on the largest cell so the tier sum
		// matches the target exactly.
		var sum int
		for _, a := range live {
			sum += a.Validators
		}
		if residual := target.Validators - sum; residual != 0 {
			live[largestCell(live)].Validators += residual
		}

		res.Allocations = append(res.Allocations, live...)
	}
	return res
}

// largestCell picks the index of the allocation with the most machines,
// breaking ties by (cl, el) lexical order.  live is already lexically sorted,
// so the first maximum wins.
func largestCell(live []Allocation) int {
	best := 0
	for i := 1; i < len(live); i++ {
		if live[i].Machines > live[best].Machines {
			best = i
		}
	}
	return best
}

// largestRemainderMachines floors every cell's raw machine value, then awards
// the leftover units to the cells with the largest fractional remainders.
// Ties break by descending raw value, then (cl, el) lexical order.
func largestRemainderMachines(cells []RawAllocation, target TierTarget, res *Result) []int {
	machines := make([]int, len(cells))
	var assigned int
	for i, c := range cells {
		machines[i] = int(c.Machines)
		assigned += machines[i]
	}

	remaining := target.Machines - assigned
	if remaining < 0 {
		res.warnf("tier %s floors already exceed machine target %d by %d; clamping",
			target.Name, target.Machines, -remaining)
		remaining = 0
	}

	order := make([]int, len(cells))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := cells[order[x]], cells[order[y]]
		ra := a.Machines - math.Floor(a.Machines)
		rb := b.Machines - math.Floor(b.Machines)
		if ra != rb {
			return ra > rb
		}
		if a.Machines != b.Machines {
			return a.Machines > b.Machines
		}
		if a.CLName != b.CLName {
			return a.CLName < b.CLName
		}
		return a.ELName < b.ELName
	})

	for k := 0; k < remaining; k++ {
		machines[order[k%len(order)]]++
	}
	return machines
}

// thresholdMachines rounds a cell up to >=1 machine only when its raw value
// clears the tier minimum, then walks the shortfall or excess back to the
// exact target.  Cells gain machines largest-first and lose them
// smallest-first, gated by the policy's validator bounds.
func thresholdMachines(cells []RawAllocation, target TierTarget, policy ThresholdPolicy, res *Result) []int {
	minRaw := policy.OtherTierMin
	if target.Name == TierDefault {
		minRaw = policy.DefaultTierMin
	}

	machines := make([]int, len(cells))
	var assigned int
	for i, c := range cells {
		if c.Machines >= minRaw {
			machines[i] = int(math.Floor(c.Machines + 0.5))
			if machines[i] < 1 {
				machines[i] = 1
			}
		}
		assigned += machines[i]
	}

	// byRawDesc[0] is the cell with the largest fractional machine value.
	byRawDesc := make([]int, len(cells))
	for i := range byRawDesc {
		byRawDesc[i] = i
	}
	sort.SliceStable(byRawDesc, func(x, y int) bool {
		a, b := cells[byRawDesc[x]], cells[byRawDesc[y]]
		if a.Machines != b.Machines {
			return a.Machines > b.Machines
		}
		if a.CLName != b.CLName {
			return a.CLName < b.CLName
		}
		return a.ELName < b.ELName
	})

	diff := target.Machines - assigned

	// Short: first bring in zero-machine cells holding a meaningful validator
	// load, then pile any rest onto the largest cells.
	if diff > 0 {
		for _, i := range byRawDesc {
			if diff == 0 {
				break
			}
			if machines[i] == 0 && cells[i].Validators > policy.TopUpMinValidators {
				machines[i] = 1
				diff--
			}
		}
		for k := 0; diff > 0; k++ {
			machines[byRawDesc[k%len(byRawDesc)]]++
			diff--
		}
	}

	// Over: zero out the small cells first, then shave one machine at a time
	// from the smallest allocations still holding any.
	if diff < 0 {
		for k := len(byRawDesc) - 1; k >= 0 && diff < 0; k-- {
			i := byRawDesc[k]
			if machines[i] > 0 && cells[i].Validators < policy.TrimMaxValidators {
				diff += machines[i]
				machines[i] = 0
			}
		}
		for diff != 0 {
			if diff > 0 {
				machines[byRawDesc[0]] += diff
				diff = 0
				break
			}
			shaved := false
			for k := len(byRawDesc) - 1; k >= 0 && diff < 0; k-- {
				i := byRawDesc[k]
				if machines[i] > 0 {
					machines[i]--
					diff++
					shaved = true
				}
			}
			if !shaved {
				break
			}
		}
	}

	var total int
	for _, m := range machines {
		total += m
	}
	if total != target.Machines {
		res.warnf("tier %s threshold policy allocated %d machines against target %d",
			target.Name, total, target.Machines)
	}
	return machines
}
