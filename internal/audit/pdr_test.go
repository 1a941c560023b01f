package audit

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/fentz26/allot/internal/models"
	"github.com/fentz26/allot/internal/store"
)

func TestHashInputs_Stable(t *testing.T) {
	req := models.AllocationRequest{
		Tasks:              []models.Task{{Name: "T1", Priority: 1}},
		AvailableResources: []models.Resource{{Name: "wood", Quantity: 10, UnitCost: 2}},
	}

	a := HashInputs(req)
	b := HashInputs(req)
	if a != b {
		t.Errorf("Expected identical hashes, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}

	req.AvailableResources[0].Quantity = 11
	if HashInputs(req) == a {
		t.Error("Expected hash to change with inputs")
	}
}

func TestHashInputs_Unencodable(t *testing.T) {
	if got := HashInputs(math.Inf(1)); got != "hash_error" {
		t.Errorf("Expected hash_error, got %s", got)
	}
}

func TestRecord(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	w := NewPDRWriter(s)
	inputs := map[string]int{"tasks": 2}
	entry, err := w.Record(context.Background(), ActionRun, inputs, OutcomeSuccess, "run-1", "1/2 tasks allocated")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if entry.InputsHash != HashInputs(inputs) {
		t.Errorf("Expected inputs hash %s, got %s", HashInputs(inputs), entry.InputsHash)
	}

	entries, err := s.ListPDR(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != ActionRun {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}
