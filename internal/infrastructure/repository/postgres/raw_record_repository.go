package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/riskibarqy/soccer-registry/internal/domain/rawrecord"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

// raw_records keeps the collector payload verbatim as jsonb next to the
// columns the pipeline filters on.
type rawRecordInsertModel struct {
	ID             string    `db:"id"`
	Kind           string    `db:"kind"`
	SourcePlatform string    `db:"source_platform"`
	SourceID       string    `db:"source_id"`
	Payload        string    `db:"payload"`
	Status         string    `db:"status"`
	ReceivedAt     time.Time `db:"received_at"`
}

type rawRecordTableModel struct {
	Seq         int64          `db:"seq"`
	ID          string         `db:"id"`
	Payload     []byte         `db:"payload"`
	Status      string         `db:"status"`
	SkipReason  sql.NullString `db:"skip_reason"`
	ReceivedAt  time.Time      `db:"received_at"`
	ProcessedAt sql.NullTime   `db:"processed_at"`
}

var rawRecordColumns = qb.Columns(rawRecordTableModel{})

func (m rawRecordTableModel) toDomain() (rawrecord.Record, error) {
	var rec rawrecord.Record
	if err := sonic.Unmarshal(m.Payload, &rec); err != nil {
		return rawrecord.Record{}, fmt.Errorf("decode raw record %s payload: %w", m.ID, err)
	}
	rec.Seq = m.Seq
	rec.ID = m.ID
	rec.Status = rawrecord.Status(m.Status)
	rec.SkipReason = m.SkipReason.String
	rec.ReceivedAt = m.ReceivedAt.UTC()
	rec.ProcessedAt = timePtr(m.ProcessedAt)
	return rec, nil
}

type RawRecordRepository struct {
	c   conn
	now func() time.Time
}

// Append lands collector records. raw_records sits outside the write gate,
// so this is the one write that needs no token.
func (r *RawRecordRepository) Append(ctx context.Context, records []rawrecord.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := r.now()
	models := make([]rawRecordInsertModel, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.Status == "" {
			rec.Status = rawrecord.StatusPending
		}
		if rec.ReceivedAt.IsZero() {
			rec.ReceivedAt = now
		}
		payload, err := sonic.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode raw record %s: %w", rec.ID, err)
		}
		models = append(models, rawRecordInsertModel{
			ID:             rec.ID,
			Kind:           string(rec.Kind),
			SourcePlatform: rec.SourcePlatform,
			SourceID:       rec.SourceID,
			Payload:        string(payload),
			Status:         string(rec.Status),
			ReceivedAt:     rec.ReceivedAt,
		})
	}

	query, args, err := qb.InsertModels("raw_records", models, "")
	if err != nil {
		return fmt.Errorf("build insert raw records query: %w", err)
	}
	if _, err := r.c.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert raw records: %w", err)
	}
	return nil
}

func (r *RawRecordRepository) ListPending(ctx context.Context, afterSeq int64, limit int) ([]rawrecord.Record, error) {
	query, args, err := qb.Select(rawRecordColumns...).From("raw_records").
		Where(
			qb.Gt("seq", afterSeq),
			qb.Eq("status", string(rawrecord.StatusPending)),
		).
		OrderBy("seq").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list pending raw records query: %w", err)
	}

	var rows []rawRecordTableModel
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pending raw records: %w", err)
	}
	out := make([]rawrecord.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RawRecordRepository) MarkProcessed(ctx context.Context, outcomes []rawrecord.Outcome) error {
	if err := r.c.requireWrite(); err != nil {
		return err
	}
	for _, o := range outcomes {
		query, args, err := qb.Update("raw_records").
			Set("status", string(o.Status)).
			Set("skip_reason", nullString(o.Reason)).
			Set("processed_at", o.ProcessedAt).
			Where(qb.Eq("id", o.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build mark raw record processed query: %w", err)
		}
		res, err := r.c.q.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("mark raw record %s processed: %w", o.ID, err)
		}
		if rowsAffected(res) == 0 {
			return fmt.Errorf("mark raw record %s processed: raw record not found", o.ID)
		}
	}
	return nil
}
