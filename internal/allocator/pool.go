// Package allocator implements the priority-ordered allocation engine: the
// resource pool, the task queue, the engine loop and the report builder.
//
// A run is single-threaded. Every call to Allocate builds its own Pool, so
// concurrent runs never share mutable state.
package allocator

import (
	"fmt"

	"github.com/fentz26/allot/internal/models"
)

// DuplicateResourceError is returned when a resource name appears twice in
// the submitted resource list.
type DuplicateResourceError struct {
	Name string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource %q", e.Name)
}

type ledgerEntry struct {
	initial   float64
	remaining float64
	unitCost  float64
}

// Pool is the mutable ledger of one allocation run. Remaining quantities only
// ever decrease.
type Pool struct {
	entries map[string]*ledgerEntry
	order   []string
}

// NewPool builds a pool from the submitted resources.
func NewPool(resources []models.Resource) (*Pool, error) {
	p := &Pool{
		entries: make(map[string]*ledgerEntry, len(resources)),
		order:   make([]string, 0, len(resources)),
	}
	for _, r := range resources {
		if _, exists := p.entries[r.Name]; exists {
			return nil, &DuplicateResourceError{Name: r.Name}
		}
		p.entries[r.Name] = &ledgerEntry{
			initial:   r.Quantity,
			remaining: r.Quantity,
			unitCost:  r.UnitCost,
		}
		p.order = append(p.order, r.Name)
	}
	return p, nil
}

// Has reports whether name is a pool resource.
func (p *Pool) Has(name string) bool {
	_, ok := p.entries[name]
	return ok
}

// Available returns the remaining quantity of name, or 0 if unknown.
func (p *Pool) Available(name string) float64 {
	if e, ok := p.entries[name]; ok {
		return e.remaining
	}
	return 0
}

// UnitCost returns the pool's unit cost for name, or 0 if unknown.
func (p *Pool) UnitCost(name string) float64 {
	if e, ok := p.entries[name]; ok {
		return e.unitCost
	}
	return 0
}

// Commit decrements name by quantity if enough remains. On failure the pool
// is left untouched.
func (p *Pool) Commit(name string, quantity float64) bool {
	e, ok := p.entries[name]
	if !ok || quantity < 0 || quantity > e.remaining {
		return false
	}
	e.remaining -= quantity
	return true
}

// Names returns resource names in submission order.
func (p *Pool) Names() []string {
	names := make([]string, len(p.order))
	copy(names, p.order)
	return names
}

// Snapshot returns the usage ledger for every pool resource, including those
// with zero usage.
func (p *Pool) Snapshot() map[string]models.ResourceUsage {
	usage := make(map[string]models.ResourceUsage, len(p.entries))
	for name, e := range p.entries {
		usage[name] = usageOf(e.initial, e.remaining)
	}
	return usage
}

// Remaining returns the remaining quantity of every pool resource.
func (p *Pool) Remaining() map[string]float64 {
	remaining := make(map[string]float64, len(p.entries))
	for name, e := range p.entries {
		remaining[name] = e.remaining
	}
	return remaining
}

// Reserve opens a staging area for an all-or-nothing commitment.
func (p *Pool) Reserve() *Reservation {
	return &Reservation{pool: p, staged: make(map[string]float64)}
}

// Reservation stages quantities against a pool without mutating it until
// Apply. Dropping a reservation needs no cleanup.
type Reservation struct {
	pool   *Pool
	staged map[string]float64
	order  []string
}

// Add stages quantity of name. It fails if the pool cannot cover the quantity
// on top of what is already staged.
func (r *Reservation) Add(name string, quantity float64) bool {
	if !r.pool.Has(name) || quantity < 0 {
		return false
	}
	if r.staged[name]+quantity > r.pool.Available(name) {
		return false
	}
	if _, seen := r.staged[name]; !seen {
		r.order = append(r.order, name)
	}
	r.staged[name] += quantity
	return true
}

// Lines returns the staged totals per resource.
func (r *Reservation) Lines() map[string]float64 {
	lines := make(map[string]float64, len(r.staged))
	for name, qty := range r.staged {
		lines[name] = qty
	}
	return lines
}

// Apply commits every staged line or none of them.
func (r *Reservation) Apply() bool {
	for _, name := range r.order {
		if r.staged[name] > r.pool.Available(name) {
			return false
		}
	}
	for _, name := range r.order {
		if !r.pool.Commit(name, r.staged[name]) {
			// Unreachable after the check above in a single-threaded run.
			return false
		}
	}
	return true
}
