package allocator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fentz26/allot/internal/models"
)

// Recommendation emitted when every task was allocated and nothing is left.
const RecommendationOptimal = "All resources allocated optimally"

// BuildReport aggregates an engine outcome and the final pool state.
// It has no side effects.
func BuildReport(totalTasks int, outcome Outcome, pool *Pool, labor *LaborBudget, precision int) *models.AllocationReport {
	report := &models.AllocationReport{
		Summary: models.Summary{
			TotalTasks:     totalTasks,
			AllocatedTasks: outcome.Allocated(),
			TotalCost:      roundTo(outcome.Cost, precision),
		},
		Allocations:        outcome.Decisions,
		ResourceUsage:      pool.Snapshot(),
		RemainingResources: pool.Remaining(),
		Recommendations:    Recommend(outcome.Decisions, pool),
	}
	if report.Allocations == nil {
		report.Allocations = []models.AllocationDecision{}
	}
	if labor != nil {
		usage := labor.Usage()
		report.LaborUsage = &usage
	}
	return report
}

// Recommend derives human-readable follow-ups from the decisions and the
// residual pool.
func Recommend(decisions []models.AllocationDecision, pool *Pool) []string {
	var recs []string

	var unallocated []string
	for _, d := range decisions {
		if d.Feasible {
			continue
		}
		reason := d.Reason
		if reason == "" {
			reason = "unknown"
		}
		unallocated = append(unallocated, fmt.Sprintf("%s (%s)", d.Task, reason))
	}
	if len(unallocated) > 0 {
		recs = append(recs, "Insufficient resources for tasks: "+strings.Join(unallocated, ", "))
	}

	var excess []string
	for _, name := range pool.Names() {
		if left := pool.Available(name); left > 0 {
			excess = append(excess, name+": "+formatQuantity(left))
		}
	}
	if len(excess) > 0 {
		recs = append(recs, "Excess resources: "+strings.Join(excess, ", "))
	}

	if len(recs) == 0 {
		return []string{RecommendationOptimal}
	}
	return recs
}

func usageOf(initial, remaining float64) models.ResourceUsage {
	used := initial - remaining
	var percent float64
	if initial > 0 {
		percent = roundTo(used/initial*100, 2)
	}
	return models.ResourceUsage{
		Initial:     initial,
		Used:        used,
		Remaining:   remaining,
		PercentUsed: percent,
	}
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
