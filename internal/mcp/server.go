// Package mcp exposes the allocation service as MCP (Model Context Protocol)
// tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fentz26/allot/internal/controlplane"
	"github.com/fentz26/allot/internal/models"
)

// Backend is the subset of the control plane service the tools call.
type Backend interface {
	Run(ctx context.Context, req models.AllocationRequest) (*controlplane.RunResult, error)
	Reject(ctx context.Context, inputs interface{}, cause error)
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)
}

// Server wraps a Backend and exposes it as MCP tools.
type Server struct {
	server  *gomcp.Server
	backend Backend
}

// NewServer creates a new MCP server.
func NewServer(backend Backend, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{backend: backend}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "allot", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves on stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type allocateOutput struct {
	RunID  string                   `json:"run_id,omitempty"`
	Report *models.AllocationReport `json:"report"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return, newest first. Defaults to 50."`
}

type runSummary struct {
	ID             string  `json:"id"`
	RequestHash    string  `json:"request_hash"`
	TotalTasks     int     `json:"total_tasks"`
	AllocatedTasks int     `json:"allocated_tasks"`
	TotalCost      float64 `json:"total_cost"`
	CreatedAt      string  `json:"created_at"`
}

type listRunsOutput struct {
	Runs  []runSummary `json:"runs"`
	Count int          `json:"count"`
}

type getRunInput struct {
	RunID string `json:"run_id" jsonschema:"required,the id returned by allocate_resources or list_runs"`
}

type getRunOutput struct {
	ID          string                   `json:"id"`
	RequestHash string                   `json:"request_hash"`
	CreatedAt   string                   `json:"created_at"`
	Report      *models.AllocationReport `json:"report"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "allocate_resources",
		Description: "Allocate pooled resources to prioritized tasks. Higher priority (1-10) tasks are served first; each task gets all of its materials or none. Returns per-task decisions, total cost, resource usage and recommendations.",
	}, s.handleAllocate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_runs",
		Description: "List recent allocation runs, newest first.",
	}, s.handleListRuns)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_run",
		Description: "Get the full report of a recorded allocation run by ID.",
	}, s.handleGetRun)
}

// --- Tool handlers ---

func (s *Server) handleAllocate(ctx context.Context, _ *gomcp.CallToolRequest, input controlplane.RequestPayload) (*gomcp.CallToolResult, allocateOutput, error) {
	req, err := input.ToRequest()
	if err != nil {
		s.backend.Reject(ctx, input, err)
		return errorResult(err.Error()), allocateOutput{}, nil
	}

	res, err := s.backend.Run(ctx, req)
	if err != nil {
		return errorResult(fmt.Sprintf("allocating: %s", err)), allocateOutput{}, nil
	}
	return nil, allocateOutput{RunID: res.RunID, Report: res.Report}, nil
}

func (s *Server) handleListRuns(ctx context.Context, _ *gomcp.CallToolRequest, input listRunsInput) (*gomcp.CallToolResult, listRunsOutput, error) {
	if input.Limit < 0 {
		return errorResult("limit must not be negative"), listRunsOutput{Runs: []runSummary{}}, nil
	}

	runs, err := s.backend.ListRuns(ctx, input.Limit)
	if err != nil {
		return errorResult(fmt.Sprintf("listing runs: %s", err)), listRunsOutput{Runs: []runSummary{}}, nil
	}

	out := listRunsOutput{
		Runs:  make([]runSummary, len(runs)),
		Count: len(runs),
	}
	for i, r := range runs {
		out.Runs[i] = runSummary{
			ID:             r.ID,
			RequestHash:    r.RequestHash,
			TotalTasks:     r.TotalTasks,
			AllocatedTasks: r.AllocatedTasks,
			TotalCost:      r.TotalCost,
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetRun(ctx context.Context, _ *gomcp.CallToolRequest, input getRunInput) (*gomcp.CallToolResult, getRunOutput, error) {
	if input.RunID == "" {
		return errorResult("run_id is required"), getRunOutput{}, nil
	}

	run, err := s.backend.GetRun(ctx, input.RunID)
	if errors.Is(err, controlplane.ErrRunNotFound) {
		return errorResult(fmt.Sprintf("run %s not found", input.RunID)), getRunOutput{}, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("getting run %s: %s", input.RunID, err)), getRunOutput{}, nil
	}

	return nil, getRunOutput{
		ID:          run.ID,
		RequestHash: run.RequestHash,
		CreatedAt:   run.CreatedAt.Format(time.RFC3339),
		Report:      run.Report,
	}, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
