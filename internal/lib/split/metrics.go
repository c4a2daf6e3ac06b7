package split

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promTierMachines = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "nodesplit",
		Name:      "tier_machine_count",
	}, []string{"tier"})
	promTierValidators = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "nodesplit",
		Name:      "tier_validator_count",
	}, []string{"tier"})
	promUnallocated = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "nodesplit",
		Name:      "validators_unallocated",
	})
	promCellCount = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "nodesplit",
		Name:      "cell_count",
	})
)

// PublishMetrics exposes the latest apportionment as prometheus gauges.  Only
// meaningful in daemon mode where a scrape endpoint is up.
func PublishMetrics(res *Result) {
	machines := map[string]int{}
	validators := map[string]int{}
	for _, a := range res.Allocations {
		machines[a.Tier] += a.Machines
		validators[a.Tier] += a.Validators
	}
	for tier, count := range machines {
		promTierMachines.WithLabelValues(tier).Set(float64(count))
	}
	for tier, count := range validators {
		promTierValidators.WithLabelValues(tier).Set(float64(count))
	}
	var unallocated int
	for _, n := range res.Unallocated {
		unallocated += n
	}
	promUnallocated.Set(float64(unallocated))
	promCellCount.Set(float64(len(res.Allocations)))
}
