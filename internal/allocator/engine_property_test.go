package allocator

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/fentz26/allot/internal/models"
)

var poolNames = []string{"wood", "nails", "cement", "steel", "glass"}

// Quantities and costs are drawn on a quarter-unit grid so sums stay exact.
func genQuarter(t *rapid.T, label string, max int) float64 {
	return float64(rapid.IntRange(0, max*4).Draw(t, label)) / 4
}

func genResources(t *rapid.T) []models.Resource {
	n := rapid.IntRange(1, len(poolNames)).Draw(t, "nResources")
	resources := make([]models.Resource, n)
	for i := range resources {
		resources[i] = models.Resource{
			Name:     poolNames[i],
			Quantity: genQuarter(t, "stock", 40),
			UnitCost: genQuarter(t, "poolCost", 10),
		}
	}
	return resources
}

func genTask(t *rapid.T) models.Task {
	// "ghost" is never stocked, exercising the not-found path.
	names := append([]string{"ghost"}, poolNames...)
	nMats := rapid.IntRange(1, 3).Draw(t, "nMaterials")
	mats := make([]models.MaterialRequirement, nMats)
	for i := range mats {
		mats[i] = models.MaterialRequirement{
			Name:     rapid.SampledFrom(names).Draw(t, "materialName"),
			Quantity: genQuarter(t, "demand", 15),
			UnitCost: genQuarter(t, "declaredCost", 10),
		}
	}
	return models.Task{
		Name:              fmt.Sprintf("task-%d", rapid.IntRange(0, 999).Draw(t, "taskNum")),
		RequiredMaterials: mats,
		RequiredLabor:     genQuarter(t, "labor", 8),
		Priority:          rapid.IntRange(1, 10).Draw(t, "priority"),
	}
}

func genRequest(t *rapid.T) models.AllocationRequest {
	req := models.AllocationRequest{
		Tasks:              rapid.SliceOfN(rapid.Custom(genTask), 1, 12).Draw(t, "tasks"),
		AvailableResources: genResources(t),
	}
	if rapid.Bool().Draw(t, "withLabor") {
		capacity := genQuarter(t, "laborCapacity", 30)
		req.LaborCapacity = &capacity
	}
	return req
}

func TestEngineConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest(t)
		report, err := NewEngine(nil, nil).Allocate(req)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}

		if len(report.ResourceUsage) != len(req.AvailableResources) {
			t.Fatalf("usage has %d entries, want %d", len(report.ResourceUsage), len(req.AvailableResources))
		}
		for name, u := range report.ResourceUsage {
			if math.Abs(u.Initial-(u.Used+u.Remaining)) > 1e-9 {
				t.Fatalf("%s: initial %v != used %v + remaining %v", name, u.Initial, u.Used, u.Remaining)
			}
			if u.Remaining < 0 || u.Remaining > u.Initial {
				t.Fatalf("%s: remaining %v outside [0, %v]", name, u.Remaining, u.Initial)
			}
		}
	})
}

func TestEngineNoOverCommitment(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest(t)
		report, err := NewEngine(nil, nil).Allocate(req)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}

		committed := make(map[string]float64)
		for _, d := range report.Allocations {
			if !d.Feasible && len(d.Resources) != 0 {
				t.Fatalf("infeasible task %s retained resources %v", d.Task, d.Resources)
			}
			for name, qty := range d.Resources {
				committed[name] += qty
			}
		}
		for name, u := range report.ResourceUsage {
			if committed[name] != u.Used {
				t.Fatalf("%s: decisions commit %v, ledger used %v", name, committed[name], u.Used)
			}
		}
	})
}

func TestEngineDeterminism(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest(t)
		first, err := NewEngine(nil, nil).Allocate(req)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		second, err := NewEngine(nil, nil).Allocate(req)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("reports differ:\n%+v\n%+v", first, second)
		}
	})
}

func TestEngineCosting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest(t)
		report, err := NewEngine(nil, nil).Allocate(req)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}

		// Decisions are in queue order, which is the stable priority sort.
		ordered := NewQueue(req.Tasks).Tasks()
		var want float64
		allocated := 0
		for i, d := range report.Allocations {
			if ordered[i].Name != d.Task {
				t.Fatalf("decision %d is %s, queue has %s", i, d.Task, ordered[i].Name)
			}
			if !d.Feasible {
				continue
			}
			allocated++
			for _, m := range ordered[i].RequiredMaterials {
				want += m.Quantity * m.UnitCost
			}
		}
		if report.Summary.TotalCost != roundTo(want, 2) {
			t.Fatalf("total_cost %v, want %v", report.Summary.TotalCost, roundTo(want, 2))
		}
		if report.Summary.AllocatedTasks != allocated {
			t.Fatalf("allocated_tasks %d, want %d", report.Summary.AllocatedTasks, allocated)
		}
		if report.Summary.TotalTasks != len(req.Tasks) {
			t.Fatalf("total_tasks %d, want %d", report.Summary.TotalTasks, len(req.Tasks))
		}
	})
}

func TestEnginePriorityOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest(t)
		queue := NewQueue(req.Tasks).Tasks()
		for i := 1; i < len(queue); i++ {
			if queue[i-1].Priority < queue[i].Priority {
				t.Fatalf("priority %d before %d", queue[i-1].Priority, queue[i].Priority)
			}
		}
	})
}

func TestEngineLaborNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := genRequest(t)
		capacity := genQuarter(t, "capacity", 20)
		req.LaborCapacity = &capacity

		report, err := NewEngine(nil, nil).Allocate(req)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		var used float64
		for _, d := range report.Allocations {
			if d.Feasible {
				used += d.Labor
			}
		}
		if used > capacity {
			t.Fatalf("feasible labor %v exceeds capacity %v", used, capacity)
		}
		if report.LaborUsage == nil || report.LaborUsage.Used != used {
			t.Fatalf("labor usage %+v, want used %v", report.LaborUsage, used)
		}
	})
}
