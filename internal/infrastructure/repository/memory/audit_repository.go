package memory

import (
	"context"

	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
)

type AuditRepository struct {
	v *view
}

func (r *AuditRepository) Append(_ context.Context, rec audit.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return r.v.write(func(t *tables) error {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = r.v.now()
		}
		rec.Before = append([]byte(nil), rec.Before...)
		rec.After = append([]byte(nil), rec.After...)
		t.audit = append(t.audit, rec)
		return nil
	})
}

func (r *AuditRepository) ListByEntity(_ context.Context, entityID string) ([]audit.Record, error) {
	return r.filter(func(rec audit.Record) bool { return rec.EntityID == entityID }), nil
}

func (r *AuditRepository) ListByRun(_ context.Context, runID string) ([]audit.Record, error) {
	return r.filter(func(rec audit.Record) bool { return rec.RunID == runID }), nil
}

func (r *AuditRepository) filter(keep func(audit.Record) bool) []audit.Record {
	out := make([]audit.Record, 0)
	r.v.read(func(t *tables) {
		for _, rec := range t.audit {
			if keep(rec) {
				out = append(out, rec)
			}
		}
	})
	return out
}
