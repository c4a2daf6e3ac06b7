package split

import (
	"fmt"
	"math"
)

// Strategy selects how per-tier machine targets are determined.
type Strategy string

const (
	// StrategyFixedCount uses the explicit MachineCount of each tier.
	StrategyFixedCount Strategy = "fixed"
	// StrategyShareOfTotal derives a machine total from
	// TotalValidators / ValidatorsPerMachine and splits it by MachineShare.
	StrategyShareOfTotal Strategy = "share"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFixedCount, StrategyShareOfTotal:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w:%s", ErrUnknownStrategy, s)
}

// Policy selects the integer rounding discipline inside a tier.
type Policy string

const (
	PolicyLargestRemainder Policy = "largest-remainder"
	PolicyThreshold        Policy = "threshold"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyLargestRemainder, PolicyThreshold:
		return Policy(s), nil
	}
	return "", fmt.Errorf("%w:%s", ErrUnknownPolicy, s)
}

// ThresholdPolicy tunes the threshold rounding variant.  A cell only rounds up
// to >=1 machine when its raw machine value clears the tier's minimum; the
// top-up and trim bounds gate which cells gain or lose machines when the tier
// misses its target after the first pass.
type ThresholdPolicy struct {
	DefaultTierMin     float64 `yaml:"default_tier_min"`
	OtherTierMin       float64 `yaml:"other_tier_min"`
	TopUpMinValidators float64 `yaml:"topup_min_validators"`
	TrimMaxValidators  float64 `yaml:"trim_max_validators"`
}

// DefaultThresholdPolicy mirrors the values the calculator historically used.
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		DefaultTierMin:     0.4,
		OtherTierMin:       0.7,
		TopUpMinValidators: 20,
		TrimMaxValidators:  50,
	}
}

// TierConfig describes one node tier.  ValidatorShare is always used;
// MachineCount vs MachineShare depends on the configured Strategy.
type TierConfig struct {
	Name           string  `yaml:"name"`
	ValidatorShare float64 `yaml:"validator_share"`
	MachineShare   float64 `yaml:"machine_share"`
	MachineCount   int     `yaml:"machine_count"`
}

// Config is the full input to the pipeline.  It is validated once up front;
// the planner and apportioner assume a valid config.
type Config struct {
	TotalValidators      int                `yaml:"total_validators"`
	ValidatorsPerMachine int                `yaml:"validators_per_machine"`
	Strategy             Strategy           `yaml:"strategy"`
	Policy               Policy             `yaml:"policy"`
	Threshold            ThresholdPolicy    `yaml:"threshold"`
	Tiers                []TierConfig       `yaml:"tiers"`
	CLClients            map[string]float64 `yaml:"cl_clients"`
	ELClients            map[string]float64 `yaml:"el_clients"`
}

func DefaultConfig() Config {
	return Config{
		TotalValidators:      DefaultTotalValidators,
		ValidatorsPerMachine: DefaultValidatorsPerMachine,
		Strategy:             StrategyFixedCount,
		Policy:               PolicyLargestRemainder,
		Threshold:            DefaultThresholdPolicy(),
		Tiers:                DefaultTiers(),
		CLClients:            DefaultCLWeights(),
		ELClients:            DefaultELWeights(),
	}
}

// shareSumTolerance is the floating slack allowed when checking that a share
// table sums to 1.0.
const shareSumTolerance = 1e-6

func (c *Config) Validate() error {
	if c.TotalValidators <= 0 {
		return fmt.Errorf("%w: total validators must be positive, have %d", ErrBadConfig, c.TotalValidators)
	}
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	if c.Strategy == StrategyShareOfTotal && c.ValidatorsPerMachine <= 0 {
		return fmt.Errorf("%w: validators per machine must be positive for the share strategy, have %d", ErrBadConfig, c.ValidatorsPerMachine)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers defined", ErrBadConfig)
	}
	seen := map[string]bool{}
	var vShareSum, mShareSum float64
	for _, tier := range c.Tiers {
		if tier.Name == "" {
			return fmt.Errorf("%w: tier with empty name", ErrBadConfig)
		}
		if seen[tier.Name] {
			return fmt.Errorf("%w: duplicate tier:%s", ErrBadConfig, tier.Name)
		}
		seen[tier.Name] = true
		if tier.ValidatorShare < 0 || tier.ValidatorShare > 1 {
			return fmt.Errorf("%w: tier:%s validator share %.4f out of [0,1]", ErrBadConfig, tier.Name, tier.ValidatorShare)
		}
		vShareSum += tier.ValidatorShare
		switch c.Strategy {
		case StrategyFixedCount:
			if tier.MachineCount < 0 {
				return fmt.Errorf("%w: tier:%s negative machine count %d", ErrBadConfig, tier.Name, tier.MachineCount)
			}
		case StrategyShareOfTotal:
			if tier.MachineShare < 0 || tier.MachineShare > 1 {
				return fmt.Errorf("%w: tier:%s machine share %.4f out of [0,1]", ErrBadConfig, tier.Name, tier.MachineShare)
			}
			mShareSum += tier.MachineShare
		}
	}
	if math.Abs(vShareSum-1.0) > shareSumTolerance {
		return fmt.Errorf("%w: tier validator shares sum to %.6f, want 1.0", ErrBadConfig, vShareSum)
	}
	if c.Strategy == StrategyShareOfTotal && math.Abs(mShareSum-1.0) > shareSumTolerance {
		return fmt.Errorf("%w: tier machine shares sum to %.6f, want 1.0", ErrBadConfig, mShareSum)
	}
	if err := validateWeights("cl", c.CLClients); err != nil {
		return err
	}
	if err := validateWeights("el", c.ELClients); err != nil {
		return err
	}
	return nil
}

// validateWeights checks a client weight table.  An empty table is allowed -
// it produces zero cells and the apportioner reports every tier as
// unallocated - but a non-empty table must sum to 1.0.
func validateWeights(dimension string, weights map[string]float64) error {
	if len(weights) == 0 {
		return nil
	}
	var sum float64
	for name, w := range weights {
		if name == "" {
			return fmt.Errorf("%w: %s client with empty name", ErrBadConfig, dimension)
		}
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: %s client:%s weight %.4f out of [0,1]", ErrBadConfig, dimension, name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > shareSumTolerance {
		return fmt.Errorf("%w: %s client weights sum to %.6f, want 1.0", ErrBadConfig, dimension, sum)
	}
	return nil
}
