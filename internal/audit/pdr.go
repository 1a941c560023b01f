// Package audit provides PDR (Process Decision Record) writing for allocation runs.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/allot/internal/models"
	"github.com/fentz26/allot/internal/store"
)

// Audited actions.
const (
	ActionRun    = "allocation.run"
	ActionReject = "allocation.reject"
)

// Outcomes recorded alongside an action.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	store *store.Store
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s *store.Store) *PDRWriter {
	return &PDRWriter{store: s}
}

// Record writes a PDR entry for an allocation decision.
func (w *PDRWriter) Record(ctx context.Context, action string, inputs interface{}, outcome, runID, details string) (*models.PDREntry, error) {
	return w.store.WritePDR(ctx, action, HashInputs(inputs), outcome, runID, details)
}

// HashInputs returns the hex SHA256 of the JSON encoding of inputs.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
