package memory

import (
	"context"
	"sync"

	"github.com/statfuse/statfuse/internal/domain/provenance"
)

// ProvenanceRepository keeps warnings, conflicts and run records in
// process memory, newest last.
type ProvenanceRepository struct {
	mu        sync.RWMutex
	warnings  []provenance.Warning
	conflicts []provenance.Conflict
	runs      []provenance.RunRecord
}

func NewProvenanceRepository() *ProvenanceRepository {
	return &ProvenanceRepository{}
}

func (r *ProvenanceRepository) RecordWarning(_ context.Context, warning provenance.Warning) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	warning.ID = int64(len(r.warnings) + 1)
	r.warnings = append(r.warnings, warning)
	return nil
}

func (r *ProvenanceRepository) RecordConflict(_ context.Context, conflict provenance.Conflict) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conflict.ID = int64(len(r.conflicts) + 1)
	r.conflicts = append(r.conflicts, conflict)
	return nil
}

func (r *ProvenanceRepository) RecordRun(_ context.Context, run provenance.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run.ID = int64(len(r.runs) + 1)
	r.runs = append(r.runs, run)
	return nil
}

func (r *ProvenanceRepository) ListRecentConflicts(_ context.Context, limit int) ([]provenance.Conflict, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []provenance.Conflict
	for i := len(r.conflicts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.conflicts[i])
	}
	return out, nil
}

func (r *ProvenanceRepository) ListRecentWarnings(_ context.Context, limit int) ([]provenance.Warning, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []provenance.Warning
	for i := len(r.warnings) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.warnings[i])
	}
	return out, nil
}

// Runs returns every recorded run, oldest first.
func (r *ProvenanceRepository) Runs() []provenance.RunRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]provenance.RunRecord, len(r.runs))
	copy(out, r.runs)
	return out
}
