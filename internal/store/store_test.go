package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/allot/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestRunCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	request := json.RawMessage(`{"tasks":[{"name":"T1"}]}`)
	run, err := s.CreateRun(ctx, "abc123", request, sampleReport(2, 1, 10))
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == "" {
		t.Error("Run ID should not be empty")
	}
	if run.TotalTasks != 2 || run.AllocatedTasks != 1 || run.TotalCost != 10 {
		t.Errorf("Unexpected summary columns: %+v", run)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected run to exist")
	}
	if got.RequestHash != "abc123" {
		t.Errorf("Expected request hash abc123, got %s", got.RequestHash)
	}
	if string(got.Request) != string(request) {
		t.Errorf("Expected request %s, got %s", request, got.Request)
	}
	if got.Report == nil || len(got.Report.Allocations) != 2 {
		t.Fatalf("Expected report with 2 allocations, got %+v", got.Report)
	}
	if got.Report.Allocations[1].Reason != "insufficient wood" {
		t.Errorf("Expected reason to survive round trip, got %q", got.Report.Allocations[1].Reason)
	}
	if got.Report.ResourceUsage["wood"].Remaining != 5 {
		t.Errorf("Expected wood remaining 5, got %v", got.Report.ResourceUsage["wood"].Remaining)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, err := s.GetRun(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run != nil {
		t.Errorf("Expected nil run, got %+v", run)
	}
}

func TestCreateRun_NilReport(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.CreateRun(context.Background(), "h", nil, nil); err == nil {
		t.Error("Expected error for nil report")
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		run, err := s.CreateRun(ctx, fmt.Sprintf("hash-%d", i), nil, sampleReport(i+1, i, float64(i)))
		if err != nil {
			t.Fatalf("CreateRun %d failed: %v", i, err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[4] {
		t.Errorf("Expected newest run first, got %s", runs[0].ID)
	}
	if runs[0].Report != nil || runs[0].Request != nil {
		t.Error("List results should not carry bodies")
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Expected 5 runs with default limit, got %d", len(all))
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", runs)
	}
}

func TestPDR(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	pdr, err := s.WritePDR(ctx, "allocation.run", "hash123", "success", "run-1", "1/2 tasks allocated")
	if err != nil {
		t.Fatalf("WritePDR failed: %v", err)
	}
	if pdr.ID == "" {
		t.Error("PDR ID should not be empty")
	}
	if _, err := s.WritePDR(ctx, "allocation.reject", "hash456", "rejected", "", "tasks: must not be empty"); err != nil {
		t.Fatalf("WritePDR failed: %v", err)
	}

	entries, err := s.ListPDR(ctx, 10)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "allocation.reject" || entries[0].RunID != "" {
		t.Errorf("Unexpected newest entry: %+v", entries[0])
	}
	if entries[1].RunID != "run-1" || entries[1].InputsHash != "hash123" {
		t.Errorf("Unexpected oldest entry: %+v", entries[1])
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Expected Ping to fail after Close")
	}
}

func sampleReport(total, allocated int, cost float64) *models.AllocationReport {
	allocations := []models.AllocationDecision{
		{Task: "T1", Labor: 2, Resources: map[string]float64{"wood": 5}, Feasible: true},
	}
	for i := 1; i < total; i++ {
		allocations = append(allocations, models.AllocationDecision{
			Task: fmt.Sprintf("T%d", i+1), Labor: 1, Resources: map[string]float64{}, Reason: "insufficient wood",
		})
	}
	return &models.AllocationReport{
		Summary:     models.Summary{TotalTasks: total, AllocatedTasks: allocated, TotalCost: cost},
		Allocations: allocations,
		ResourceUsage: map[string]models.ResourceUsage{
			"wood": {Initial: 10, Used: 5, Remaining: 5, PercentUsed: 50},
		},
		RemainingResources: map[string]float64{"wood": 5},
		Recommendations:    []string{"Excess resources: wood: 5"},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
