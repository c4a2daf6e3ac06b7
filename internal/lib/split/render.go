package split

import (
	"fmt"
	"sort"
	"strings"
)

// tierSuffix is empty for the default tier so its variable/display names stay
// bare (prysm_geth rather than prysm_geth_default).
func (a Allocation) tierSuffix() string {
	if a.Tier == TierDefault {
		return ""
	}
	return "_" + a.Tier
}

// VariableName is the terraform variable identifier for this cell.
func (a Allocation) VariableName() string {
	return strings.ToLower(a.CLName) + "_" + strings.ToLower(a.ELName) + a.tierSuffix()
}

// ConfigName is the display name inside the variable block.
func (a Allocation) ConfigName() string {
	return strings.ToLower(a.CLName) + "-" + strings.ToLower(a.ELName) + strings.ReplaceAll(a.tierSuffix(), "_", "-")
}

// sortAllocations orders cells by (cl, el, tier), case-insensitive.  The
// renderer walks this order when handing out validator ranges, so it is the
// one ordering the output contract depends on.
func sortAllocations(allocs []Allocation) {
	sort.SliceStable(allocs, func(x, y int) bool {
		a, b := allocs[x], allocs[y]
		if cl, bl := strings.ToLower(a.CLName), strings.ToLower(b.CLName); cl != bl {
			return cl < bl
		}
		if el, bl := strings.ToLower(a.ELName), strings.ToLower(b.ELName); el != bl {
			return el < bl
		}
		return strings.ToLower(a.Tier) < strings.ToLower(b.Tier)
	})
}

// Render sorts the surviving allocations, assigns each one a contiguous
// half-open validator range starting at 0, and emits one terraform variable
// block per cell.  Blocks are separated by a single blank line.  Cells with
// zero machines or no validators are never emitted.
func Render(res *Result) string {
	sortAllocations(res.Allocations)

	var (
		b     strings.Builder
		start int
		first = true
	)
	for i := range res.Allocations {
		a := &res.Allocations[i]
		if a.Machines == 0 || a.Validators <= 0 {
			continue
		}
		a.ValidatorStart = start
		a.ValidatorEnd = start + a.Validators
		start = a.ValidatorEnd

		if !first {
			b.WriteString("\n")
		}
		first = false

		fmt.Fprintf(&b, "variable %q {\n", a.VariableName())
		b.WriteString("  default = {\n")
		fmt.Fprintf(&b, "    name            = %q\n", a.ConfigName())
		fmt.Fprintf(&b, "    count           = %d\n", a.Machines)
		fmt.Fprintf(&b, "    validator_start = %d\n", a.ValidatorStart)
		fmt.Fprintf(&b, "    validator_end   = %d\n", a.ValidatorEnd)
		b.WriteString("  }\n")
		b.WriteString("}\n")
	}
	return b.String()
}
