// Package controlplane provides the HTTP API and service layer for allot.
package controlplane

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fentz26/allot/internal/allocator"
	"github.com/fentz26/allot/internal/audit"
	"github.com/fentz26/allot/internal/logging"
	"github.com/fentz26/allot/internal/models"
	"github.com/fentz26/allot/internal/store"
	"github.com/fentz26/allot/internal/tracing"
)

// RunResult is a successful allocation together with its history id. RunID
// is empty when history is disabled or could not be written.
type RunResult struct {
	RunID  string                   `json:"run_id,omitempty"`
	Report *models.AllocationReport `json:"report"`
}

// Service provides the control plane business logic. It is safe for
// concurrent use; every call builds its own pool.
type Service struct {
	engine *allocator.Engine
	store  *store.Store
	pdr    *audit.PDRWriter
	logger *zap.Logger
}

// NewService creates a new control plane service. st and pdr may be nil, in
// which case runs are not recorded.
func NewService(engine *allocator.Engine, st *store.Store, pdr *audit.PDRWriter, logger *zap.Logger) *Service {
	if engine == nil {
		engine = allocator.NewEngine(nil, logger)
	}
	return &Service{
		engine: engine,
		store:  st,
		pdr:    pdr,
		logger: logging.OrNop(logger),
	}
}

// Allocate validates req and runs the allocation engine on it.
func (s *Service) Allocate(ctx context.Context, req models.AllocationRequest) (*models.AllocationReport, error) {
	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

// Run is Allocate plus the id of the recorded run.
func (s *Service) Run(ctx context.Context, req models.AllocationRequest) (result *RunResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "allocation.run")
	defer func() { tracing.EndSpan(span, err) }()
	span.SetInt("tasks", len(req.Tasks)).SetInt("resources", len(req.AvailableResources))

	if err := Validate(req); err != nil {
		s.Reject(ctx, req, err)
		return nil, err
	}

	report, err := s.engine.Allocate(req)
	if err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	span.SetInt("allocated", report.Summary.AllocatedTasks).SetFloat("total_cost", report.Summary.TotalCost)

	s.logger.Info("allocation complete",
		zap.Int("tasks", report.Summary.TotalTasks),
		zap.Int("allocated", report.Summary.AllocatedTasks),
		zap.Float64("total_cost", report.Summary.TotalCost),
	)

	return &RunResult{RunID: s.record(ctx, req, report), Report: report}, nil
}

// record stores the run and its audit entry. Failures are logged only.
func (s *Service) record(ctx context.Context, req models.AllocationRequest, report *models.AllocationReport) string {
	if s.store == nil {
		return ""
	}

	raw, err := json.Marshal(req)
	if err != nil {
		s.logger.Warn("encode request for history", zap.Error(err))
		return ""
	}
	hash := audit.HashInputs(req)

	run, err := s.store.CreateRun(ctx, hash, raw, report)
	if err != nil {
		s.logger.Warn("record run", zap.Error(err))
		return ""
	}

	if s.pdr != nil {
		details := fmt.Sprintf("%d/%d tasks allocated", report.Summary.AllocatedTasks, report.Summary.TotalTasks)
		if _, err := s.pdr.Record(ctx, audit.ActionRun, req, audit.OutcomeSuccess, run.ID, details); err != nil {
			s.logger.Warn("record audit entry", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	return run.ID
}

// Reject records a request rejected before allocation.
func (s *Service) Reject(ctx context.Context, inputs interface{}, cause error) {
	s.logger.Info("allocation rejected", zap.Error(cause))
	if s.pdr == nil {
		return
	}
	if _, err := s.pdr.Record(ctx, audit.ActionReject, inputs, audit.OutcomeRejected, "", cause.Error()); err != nil {
		s.logger.Warn("record audit entry", zap.Error(err))
	}
}

// ListRuns returns recent run summaries, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.ListRuns(ctx, limit)
}

// GetRun returns a stored run with its request and report.
func (s *Service) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListAudit returns recent process decision records.
func (s *Service) ListAudit(ctx context.Context, limit int) ([]models.PDREntry, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.ListPDR(ctx, limit)
}
