package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

// Snapshots are jsonb. They travel as text because pq encodes []byte as bytea.
type auditTableModel struct {
	ID         string         `db:"id"`
	EntityType string         `db:"entity_type"`
	EntityID   string         `db:"entity_id"`
	Action     string         `db:"action"`
	Reason     string         `db:"reason"`
	Before     string         `db:"before"`
	After      sql.NullString `db:"after"`
	Actor      string         `db:"actor"`
	RunID      string         `db:"run_id"`
	CreatedAt  time.Time      `db:"created_at"`
}

var auditColumns = qb.Columns(auditTableModel{})

func (m auditTableModel) toDomain() audit.Record {
	rec := audit.Record{
		ID:         m.ID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Action:     audit.Action(m.Action),
		Reason:     m.Reason,
		Before:     []byte(m.Before),
		Actor:      m.Actor,
		RunID:      m.RunID,
		CreatedAt:  m.CreatedAt.UTC(),
	}
	if m.After.Valid {
		rec.After = []byte(m.After.String)
	}
	return rec
}

// AuditRepository is append-only. The audit_records_immutable trigger
// rejects UPDATE and DELETE regardless of the write gate.
type AuditRepository struct {
	c   conn
	now func() time.Time
}

func (r *AuditRepository) Append(ctx context.Context, rec audit.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := r.c.requireWrite(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	query, args, err := qb.InsertModel("audit_records", auditTableModel{
		ID:         rec.ID,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Action:     string(rec.Action),
		Reason:     rec.Reason,
		Before:     string(rec.Before),
		After:      sql.NullString{String: string(rec.After), Valid: len(rec.After) > 0},
		Actor:      rec.Actor,
		RunID:      rec.RunID,
		CreatedAt:  rec.CreatedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build insert audit record query: %w", err)
	}
	if _, err := r.c.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit record %s: %w", rec.ID, translateGate(err))
	}
	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityID string) ([]audit.Record, error) {
	return r.list(ctx, "list audit records by entity", qb.Eq("entity_id", entityID))
}

func (r *AuditRepository) ListByRun(ctx context.Context, runID string) ([]audit.Record, error) {
	return r.list(ctx, "list audit records by run", qb.Eq("run_id", runID))
}

func (r *AuditRepository) list(ctx context.Context, op string, conditions ...qb.Condition) ([]audit.Record, error) {
	query, args, err := qb.Select(auditColumns...).From("audit_records").
		Where(conditions...).
		OrderBy("seq").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []auditTableModel
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]audit.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
