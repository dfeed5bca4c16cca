package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

type eventTableModel struct {
	ID             string       `db:"id"`
	Name           string       `db:"name"`
	Kind           string       `db:"kind"`
	SourcePlatform string       `db:"source_platform"`
	SourceEventID  string       `db:"source_event_id"`
	StartDate      sql.NullTime `db:"start_date"`
	EndDate        sql.NullTime `db:"end_date"`
	CreatedAt      time.Time    `db:"created_at"`
}

var eventColumns = qb.Columns(eventTableModel{})

// Mirrors event.NameKey: collapse whitespace and case-fold.
const eventNameKeySQL = `lower(regexp_replace(btrim(name), '\s+', ' ', 'g'))`

func (m eventTableModel) toDomain() event.Event {
	return event.Event{
		ID:             m.ID,
		Name:           m.Name,
		Kind:           event.Kind(m.Kind),
		SourcePlatform: m.SourcePlatform,
		SourceEventID:  m.SourceEventID,
		StartDate:      timePtr(m.StartDate),
		EndDate:        timePtr(m.EndDate),
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	out := v.Time.UTC()
	return &out
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

type eventDuplicateRow struct {
	Kind     string         `db:"kind"`
	NameKey  string         `db:"name_key"`
	EventIDs pq.StringArray `db:"event_ids"`
}

type EventRepository struct {
	c   conn
	now func() time.Time
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (event.Event, bool, error) {
	return r.getOne(ctx, "select event by id", qb.Eq("id", id))
}

func (r *EventRepository) ListByIDs(ctx context.Context, ids []string) ([]event.Event, error) {
	if len(ids) == 0 {
		return []event.Event{}, nil
	}
	query, args, err := qb.Select(eventColumns...).From("events").
		Where(qb.InStrings("id", ids)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list events by ids query: %w", err)
	}

	var rows []eventTableModel
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list events by ids: %w", err)
	}
	out := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *EventRepository) FindBySource(ctx context.Context, platform, sourceEventID string) (event.Event, bool, error) {
	if sourceEventID == "" {
		return event.Event{}, false, nil
	}
	return r.getOne(ctx, "select event by source",
		qb.Eq("source_platform", platform),
		qb.Eq("source_event_id", sourceEventID),
	)
}

func (r *EventRepository) ExactDuplicates(ctx context.Context) ([]event.DuplicateGroup, error) {
	query, args, err := qb.Select(
		"kind",
		eventNameKeySQL+" AS name_key",
		"array_agg(id ORDER BY id) AS event_ids",
	).From("events").
		GroupBy("kind", eventNameKeySQL).
		Having(qb.Expr("COUNT(*) > 1")).
		OrderBy("MIN(id)").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build event exact duplicates query: %w", err)
	}

	var rows []eventDuplicateRow
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select event exact duplicates: %w", err)
	}
	out := make([]event.DuplicateGroup, 0, len(rows))
	for _, row := range rows {
		out = append(out, event.DuplicateGroup{
			Kind:     event.Kind(row.Kind),
			NameKey:  row.NameKey,
			EventIDs: append([]string(nil), row.EventIDs...),
		})
	}
	return out, nil
}

func (r *EventRepository) Create(ctx context.Context, e event.Event) (event.Event, bool, error) {
	if err := e.Validate(); err != nil {
		return event.Event{}, false, err
	}
	if err := r.c.requireWrite(); err != nil {
		return event.Event{}, false, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	query, args, err := qb.InsertModel("events", eventTableModel{
		ID:             e.ID,
		Name:           e.Name,
		Kind:           string(e.Kind),
		SourcePlatform: e.SourcePlatform,
		SourceEventID:  e.SourceEventID,
		StartDate:      nullTime(e.StartDate),
		EndDate:        nullTime(e.EndDate),
		CreatedAt:      e.CreatedAt,
	}, "ON CONFLICT DO NOTHING RETURNING id")
	if err != nil {
		return event.Event{}, false, fmt.Errorf("build insert event query: %w", err)
	}

	var insertedID string
	err = r.c.q.GetContext(ctx, &insertedID, query, args...)
	switch {
	case err == nil:
		return e, true, nil
	case !isNotFound(err):
		return event.Event{}, false, fmt.Errorf("insert event %s: %w", e.ID, translateGate(err))
	}

	existing, ok, err := r.FindBySource(ctx, e.SourcePlatform, e.SourceEventID)
	if err != nil {
		return event.Event{}, false, err
	}
	if !ok {
		return event.Event{}, false, fmt.Errorf("create event %s: id already exists", e.ID)
	}
	return existing, false, nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if err := r.c.requireWrite(); err != nil {
		return err
	}
	query, args, err := qb.DeleteFrom("events").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete event query: %w", err)
	}
	res, err := r.c.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("delete event %s: %w", id, fixture.ErrReferenced)
		}
		return fmt.Errorf("delete event %s: %w", id, translateGate(err))
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("delete event %s: event not found", id)
	}
	return nil
}

func (r *EventRepository) getOne(ctx context.Context, op string, conditions ...qb.Condition) (event.Event, bool, error) {
	query, args, err := qb.Select(eventColumns...).From("events").
		Where(conditions...).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return event.Event{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row eventTableModel
	if err := r.c.q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return event.Event{}, false, nil
		}
		return event.Event{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return row.toDomain(), true, nil
}
