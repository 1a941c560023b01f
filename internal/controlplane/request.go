package controlplane

import (
	"fmt"
	"math"

	"github.com/fentz26/allot/internal/allocator"
	"github.com/fentz26/allot/internal/models"
)

// Priority bounds accepted on tasks.
const (
	MinPriority = 1
	MaxPriority = 10
)

// MaterialPayload is the wire form of a material requirement. Pointer fields
// distinguish absent values from zero.
type MaterialPayload struct {
	Name     *string  `json:"name"`
	Quantity *float64 `json:"quantity"`
	UnitCost *float64 `json:"unit_cost"`
}

// TaskPayload is the wire form of a task.
type TaskPayload struct {
	Name              *string           `json:"name"`
	RequiredMaterials []MaterialPayload `json:"required_materials"`
	RequiredLabor     *float64          `json:"required_labor"`
	Priority          *int              `json:"priority"`
}

// ResourcePayload is the wire form of a pooled resource.
type ResourcePayload struct {
	Name     *string  `json:"name"`
	Quantity *float64 `json:"quantity"`
	UnitCost *float64 `json:"unit_cost"`
}

// RequestPayload is the decoded body of POST /allocate.
type RequestPayload struct {
	Tasks              []TaskPayload     `json:"tasks"`
	AvailableResources []ResourcePayload `json:"available_resources"`
	LaborCapacity      *float64          `json:"labor_capacity,omitempty"`
}

// ToRequest converts the payload, failing with a *ValidationError on the
// first absent required field. Value checks are left to Validate.
func (p RequestPayload) ToRequest() (models.AllocationRequest, error) {
	req := models.AllocationRequest{
		Tasks:              make([]models.Task, 0, len(p.Tasks)),
		AvailableResources: make([]models.Resource, 0, len(p.AvailableResources)),
		LaborCapacity:      p.LaborCapacity,
	}

	for i, t := range p.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		switch {
		case t.Name == nil:
			return req, invalid(field+".name", "is required")
		case t.RequiredMaterials == nil:
			return req, invalid(field+".required_materials", "is required")
		case t.RequiredLabor == nil:
			return req, invalid(field+".required_labor", "is required")
		case t.Priority == nil:
			return req, invalid(field+".priority", "is required")
		}

		task := models.Task{
			Name:              *t.Name,
			RequiredMaterials: make([]models.MaterialRequirement, 0, len(t.RequiredMaterials)),
			RequiredLabor:     *t.RequiredLabor,
			Priority:          *t.Priority,
		}
		for j, m := range t.RequiredMaterials {
			mfield := fmt.Sprintf("%s.required_materials[%d]", field, j)
			switch {
			case m.Name == nil:
				return req, invalid(mfield+".name", "is required")
			case m.Quantity == nil:
				return req, invalid(mfield+".quantity", "is required")
			case m.UnitCost == nil:
				return req, invalid(mfield+".unit_cost", "is required")
			}
			task.RequiredMaterials = append(task.RequiredMaterials, models.MaterialRequirement{
				Name:     *m.Name,
				Quantity: *m.Quantity,
				UnitCost: *m.UnitCost,
			})
		}
		req.Tasks = append(req.Tasks, task)
	}

	for i, r := range p.AvailableResources {
		field := fmt.Sprintf("available_resources[%d]", i)
		switch {
		case r.Name == nil:
			return req, invalid(field+".name", "is required")
		case r.Quantity == nil:
			return req, invalid(field+".quantity", "is required")
		case r.UnitCost == nil:
			return req, invalid(field+".unit_cost", "is required")
		}
		req.AvailableResources = append(req.AvailableResources, models.Resource{
			Name:     *r.Name,
			Quantity: *r.Quantity,
			UnitCost: *r.UnitCost,
		})
	}

	return req, nil
}

// Validate checks request values. It returns the first problem found as a
// *ValidationError.
func Validate(req models.AllocationRequest) error {
	if len(req.Tasks) == 0 {
		return invalid("tasks", "must not be empty")
	}
	if len(req.AvailableResources) == 0 {
		return invalid("available_resources", "must not be empty")
	}

	for i, t := range req.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		if t.Name == "" {
			return invalid(field+".name", "is required")
		}
		if len(t.RequiredMaterials) == 0 {
			return invalid(field+".required_materials", "must not be empty")
		}
		for j, m := range t.RequiredMaterials {
			mfield := fmt.Sprintf("%s.required_materials[%d]", field, j)
			if m.Name == "" {
				return invalid(mfield+".name", "is required")
			}
			if err := checkAmount(mfield+".quantity", m.Quantity); err != nil {
				return err
			}
			if err := checkAmount(mfield+".unit_cost", m.UnitCost); err != nil {
				return err
			}
		}
		if err := checkAmount(field+".required_labor", t.RequiredLabor); err != nil {
			return err
		}
		if t.Priority < MinPriority || t.Priority > MaxPriority {
			return invalid(field+".priority", fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority))
		}
	}

	seen := make(map[string]bool, len(req.AvailableResources))
	for i, r := range req.AvailableResources {
		field := fmt.Sprintf("available_resources[%d]", i)
		if r.Name == "" {
			return invalid(field+".name", "is required")
		}
		if seen[r.Name] {
			return invalid(field+".name", (&allocator.DuplicateResourceError{Name: r.Name}).Error())
		}
		seen[r.Name] = true
		if err := checkAmount(field+".quantity", r.Quantity); err != nil {
			return err
		}
		if err := checkAmount(field+".unit_cost", r.UnitCost); err != nil {
			return err
		}
	}

	if req.LaborCapacity != nil {
		if err := checkAmount("labor_capacity", *req.LaborCapacity); err != nil {
			return err
		}
	}
	return nil
}

func checkAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite number")
	}
	if v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}
