// Package models defines the core domain types for allot.
package models

import (
	"encoding/json"
	"time"
)

// MaterialRequirement is a material a task needs, priced at the requester's
// expected unit cost.
type MaterialRequirement struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	UnitCost float64 `json:"unit_cost"`
}

// Task is a unit of work competing for pooled resources.
// Higher priority values are serviced first.
type Task struct {
	Name              string                `json:"name"`
	RequiredMaterials []MaterialRequirement `json:"required_materials"`
	RequiredLabor     float64               `json:"required_labor"`
	Priority          int                   `json:"priority"`
}

// Resource is total available stock entering an allocation run.
type Resource struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	UnitCost float64 `json:"unit_cost"`
}

// AllocationRequest is the input to a single allocation run.
type AllocationRequest struct {
	Tasks              []Task     `json:"tasks"`
	AvailableResources []Resource `json:"available_resources"`
	// LaborCapacity caps the labor shared by all tasks. Nil means labor is
	// informational only.
	LaborCapacity *float64 `json:"labor_capacity,omitempty"`
}

// AllocationDecision records the outcome for one task.
type AllocationDecision struct {
	Task      string             `json:"task"`
	Labor     float64            `json:"labor"`
	Resources map[string]float64 `json:"resources"`
	Feasible  bool               `json:"feasible"`
	Reason    string             `json:"reason,omitempty"`
}

// Summary holds the headline numbers of a report.
type Summary struct {
	TotalTasks     int     `json:"total_tasks"`
	AllocatedTasks int     `json:"allocated_tasks"`
	TotalCost      float64 `json:"total_cost"`
}

// ResourceUsage is one line of the resource usage ledger.
type ResourceUsage struct {
	Initial     float64 `json:"initial"`
	Used        float64 `json:"used"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
}

// AllocationReport is the result of an allocation run.
type AllocationReport struct {
	Summary            Summary                  `json:"summary"`
	Allocations        []AllocationDecision     `json:"allocations"`
	ResourceUsage      map[string]ResourceUsage `json:"resource_usage"`
	RemainingResources map[string]float64       `json:"remaining_resources"`
	LaborUsage         *ResourceUsage           `json:"labor_usage,omitempty"`
	Recommendations    []string                 `json:"recommendations"`
}

// RunRecord is a persisted allocation run kept for audit and history.
type RunRecord struct {
	ID             string            `json:"id"`
	RequestHash    string            `json:"request_hash"`
	TotalTasks     int               `json:"total_tasks"`
	AllocatedTasks int               `json:"allocated_tasks"`
	TotalCost      float64           `json:"total_cost"`
	Request        json.RawMessage   `json:"request,omitempty"`
	Report         *AllocationReport `json:"report,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	RunID      string    `json:"run_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
