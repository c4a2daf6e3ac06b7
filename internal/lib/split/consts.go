package split

// Tier names - fixed set, matching the terraform variable naming downstream.
const (
	TierDefault = "default"
	TierFull    = "full"
	TierSuper   = "super"
)

const (
	DefaultTotalValidators      = 15000
	DefaultValidatorsPerMachine = 255

	// AllocationTolerance is the max deviation between target and allocated
	// validators before the summary carries a warning line.
	AllocationTolerance = 10
)

// DefaultCLWeights returns the consensus-layer client distribution used when
// no plan configuration file is present.  Values must sum to 1.0.
func DefaultCLWeights() map[string]float64 {
	return map[string]float64{
		"prysm":      0.25,
		"lighthouse": 0.25,
		"teku":       0.20,
		"lodestar":   0.10,
		"nimbus":     0.10,
		"grandine":   0.10,
	}
}

// DefaultELWeights returns the execution-layer client distribution.
func DefaultELWeights() map[string]float64 {
	return map[string]float64{
		"geth":       0.50,
		"nethermind": 0.25,
		"ethereumjs": 0.01,
		"reth":       0.08,
		"besu":       0.08,
		"erigon":     0.07,
		"nimbusel":   0.01,
	}
}

// DefaultTiers returns the tier table with both the fixed machine counts and
// the machine shares populated, so either strategy works against it.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{Name: TierDefault, ValidatorShare: 0.70, MachineShare: 0.80, MachineCount: 32},
		{Name: TierFull, ValidatorShare: 0.20, MachineShare: 0.15, MachineCount: 6},
		{Name: TierSuper, ValidatorShare: 0.10, MachineShare: 0.05, MachineCount: 2},
	}
}
