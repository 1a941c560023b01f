package allocator

import (
	"go.uber.org/zap"

	"github.com/fentz26/allot/internal/models"
)

// Reasons reported on infeasible decisions.
const (
	ReasonRolledBack        = "allocation rolled back"
	ReasonInsufficientLabor = "insufficient labor"
)

// InsufficientReason is the reason given when a pool resource cannot cover a
// task's demand.
func InsufficientReason(name string) string {
	return "insufficient " + name
}

// NotFoundReason is the reason given when a task names a resource the pool
// does not have.
func NotFoundReason(name string) string {
	return "resource " + name + " not found"
}

// LaborBudget is an optional labor capacity shared by all tasks of a run.
type LaborBudget struct {
	initial   float64
	remaining float64
}

// NewLaborBudget returns a budget of capacity labor units, or nil when
// capacity is nil.
func NewLaborBudget(capacity *float64) *LaborBudget {
	if capacity == nil {
		return nil
	}
	return &LaborBudget{initial: *capacity, remaining: *capacity}
}

// Available returns the labor left in the budget.
func (b *LaborBudget) Available() float64 {
	return b.remaining
}

func (b *LaborBudget) commit(hours float64) bool {
	if hours < 0 || hours > b.remaining {
		return false
	}
	b.remaining -= hours
	return true
}

// Usage returns the labor ledger line.
func (b *LaborBudget) Usage() models.ResourceUsage {
	return usageOf(b.initial, b.remaining)
}

// Outcome is the raw result of an engine run.
type Outcome struct {
	Decisions []models.AllocationDecision
	// Cost is the unrounded sum of declared material costs of feasible tasks.
	Cost float64
}

// Allocated returns the number of feasible decisions.
func (o Outcome) Allocated() int {
	n := 0
	for _, d := range o.Decisions {
		if d.Feasible {
			n++
		}
	}
	return n
}

// Engine services a task queue against a pool in priority order.
type Engine struct {
	config *Config
	logger *zap.Logger
}

// NewEngine creates an engine. A nil config selects DefaultConfig.
func NewEngine(cfg *Config, logger *zap.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: cfg, logger: logger}
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Allocate runs the full pipeline for one request on a freshly built pool.
// The request is assumed to be validated except for duplicate resource names,
// which NewPool rejects.
func (e *Engine) Allocate(req models.AllocationRequest) (*models.AllocationReport, error) {
	pool, err := NewPool(req.AvailableResources)
	if err != nil {
		return nil, err
	}
	queue := NewQueue(req.Tasks)
	labor := NewLaborBudget(req.LaborCapacity)

	outcome := e.Run(pool, queue, labor)
	return BuildReport(len(req.Tasks), outcome, pool, labor, e.config.CostPrecision), nil
}

// Run visits every queued task once, committing resources task by task.
// Task-level failures never stop the run.
func (e *Engine) Run(pool *Pool, queue *Queue, labor *LaborBudget) Outcome {
	out := Outcome{Decisions: make([]models.AllocationDecision, 0, queue.Len())}
	queue.Each(func(task models.Task) {
		decision, cost := e.decide(pool, task, labor)
		if decision.Feasible {
			out.Cost += cost
		}
		e.logger.Debug("task decided",
			zap.String("task", task.Name),
			zap.Int("priority", task.Priority),
			zap.Bool("feasible", decision.Feasible),
			zap.String("reason", decision.Reason),
		)
		out.Decisions = append(out.Decisions, decision)
	})
	return out
}

func (e *Engine) decide(pool *Pool, task models.Task, labor *LaborBudget) (models.AllocationDecision, float64) {
	decision := models.AllocationDecision{
		Task:      task.Name,
		Labor:     task.RequiredLabor,
		Resources: map[string]float64{},
	}

	// Repeated material names accumulate demand within the task.
	demand := make(map[string]float64, len(task.RequiredMaterials))
	for _, m := range task.RequiredMaterials {
		if !pool.Has(m.Name) {
			decision.Reason = NotFoundReason(m.Name)
			return decision, 0
		}
		demand[m.Name] += m.Quantity
		if demand[m.Name] > pool.Available(m.Name) {
			decision.Reason = InsufficientReason(m.Name)
			return decision, 0
		}
	}
	if labor != nil && task.RequiredLabor > labor.Available() {
		decision.Reason = ReasonInsufficientLabor
		return decision, 0
	}

	res := pool.Reserve()
	var cost float64
	for _, m := range task.RequiredMaterials {
		if !res.Add(m.Name, m.Quantity) {
			return e.rollback(decision, m.Name), 0
		}
		cost += m.Quantity * m.UnitCost
	}
	if !res.Apply() {
		return e.rollback(decision, ""), 0
	}
	if labor != nil && !labor.commit(task.RequiredLabor) {
		// Unreachable: labor was checked before the reservation was applied.
		return e.rollback(decision, "labor"), 0
	}

	decision.Feasible = true
	decision.Resources = res.Lines()
	return decision, cost
}

func (e *Engine) rollback(decision models.AllocationDecision, resource string) models.AllocationDecision {
	e.logger.Warn("commit failed after availability check",
		zap.String("task", decision.Task),
		zap.String("resource", resource),
	)
	decision.Feasible = false
	decision.Resources = map[string]float64{}
	decision.Reason = ReasonRolledBack
	return decision
}
