package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/statfuse/statfuse/internal/domain/provenance"
	"github.com/statfuse/statfuse/internal/domain/sport"
	qb "github.com/statfuse/statfuse/internal/platform/querybuilder"
)

type ProvenanceRepository struct {
	db *sqlx.DB
}

func NewProvenanceRepository(db *sqlx.DB) *ProvenanceRepository {
	return &ProvenanceRepository{db: db}
}

func (r *ProvenanceRepository) RecordWarning(ctx context.Context, warning provenance.Warning) error {
	insertModel := warningInsertModel{
		Kind:       warning.Kind,
		Provider:   warning.Provider,
		Sport:      warning.Sport.String(),
		Subject:    warning.Subject,
		Detail:     warning.Detail,
		OccurredAt: warning.OccurredAt,
	}
	query, args, err := qb.InsertModel("resolution_warnings", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert warning query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert resolution warning: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) RecordConflict(ctx context.Context, conflict provenance.Conflict) error {
	insertModel := conflictInsertModel{
		Kind:          conflict.Kind,
		Provider:      conflict.Provider,
		Sport:         conflict.Sport.String(),
		EventID:       nullableString(conflict.EventID),
		PlayerID:      nullableString(conflict.PlayerID),
		Field:         nullableString(conflict.Field),
		KeptValue:     conflict.KeptValue,
		RejectedValue: conflict.RejectedValue,
		OccurredAt:    conflict.OccurredAt,
	}
	query, args, err := qb.InsertModel("data_conflicts", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert conflict query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert data conflict: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) RecordRun(ctx context.Context, run provenance.RunRecord) error {
	insertModel := runInsertModel{
		Provider:   run.Provider,
		Sport:      run.Sport.String(),
		Inserted:   run.Inserted,
		Updated:    run.Updated,
		Skipped:    run.Skipped,
		Ambiguous:  run.Ambiguous,
		Conflicts:  run.Conflicts,
		Errors:     run.Errors,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	query, args, err := qb.InsertModel("ingestion_runs", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert ingestion run: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) ListRecentConflicts(ctx context.Context, limit int) ([]provenance.Conflict, error) {
	query, args, err := qb.Select("*").From("data_conflicts").
		OrderBy("occurred_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select conflicts query: %w", err)
	}

	var rows []conflictTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select data conflicts: %w", err)
	}

	out := make([]provenance.Conflict, 0, len(rows))
	for _, row := range rows {
		out = append(out, provenance.Conflict{
			ID:            row.ID,
			Kind:          row.Kind,
			Provider:      row.Provider,
			Sport:         sport.Sport(row.Sport),
			EventID:       nullStringToString(row.EventID),
			PlayerID:      nullStringToString(row.PlayerID),
			Field:         nullStringToString(row.Field),
			KeptValue:     row.KeptValue,
			RejectedValue: row.RejectedValue,
			OccurredAt:    row.OccurredAt,
		})
	}
	return out, nil
}

func (r *ProvenanceRepository) ListRecentWarnings(ctx context.Context, limit int) ([]provenance.Warning, error) {
	query, args, err := qb.Select("*").From("resolution_warnings").
		OrderBy("occurred_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select warnings query: %w", err)
	}

	var rows []warningTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select resolution warnings: %w", err)
	}

	out := make([]provenance.Warning, 0, len(rows))
	for _, row := range rows {
		out = append(out, provenance.Warning{
			ID:         row.ID,
			Kind:       row.Kind,
			Provider:   row.Provider,
			Sport:      sport.Sport(row.Sport),
			Subject:    row.Subject,
			Detail:     row.Detail,
			OccurredAt: row.OccurredAt,
		})
	}
	return out, nil
}
