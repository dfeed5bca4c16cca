package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

const activeFixtureConflict = "ON CONFLICT (match_date, home_team_id, away_team_id) WHERE status = 'active' DO NOTHING RETURNING id"

type FixtureRepository struct {
	c   conn
	now func() time.Time
}

func (r *FixtureRepository) GetByID(ctx context.Context, id string) (fixture.Fixture, bool, error) {
	return r.getOne(ctx, "select fixture by id", qb.Eq("id", id))
}

func (r *FixtureRepository) FindActive(ctx context.Context, key fixture.Key) (fixture.Fixture, bool, error) {
	return r.getOne(ctx, "select active fixture by key",
		qb.Eq("match_date", fixture.DateOnly(key.MatchDate)),
		qb.Eq("home_team_id", key.HomeTeamID),
		qb.Eq("away_team_id", key.AwayTeamID),
		qb.Eq("status", string(fixture.StatusActive)),
	)
}

func (r *FixtureRepository) ListActiveByTeams(ctx context.Context, teamIDs []string) ([]fixture.Fixture, error) {
	if len(teamIDs) == 0 {
		return []fixture.Fixture{}, nil
	}
	ids := pq.StringArray(teamIDs)
	return r.list(ctx, "list active fixtures by teams",
		qb.Eq("status", string(fixture.StatusActive)),
		qb.Expr("(home_team_id = ANY(?) OR away_team_id = ANY(?))", ids, ids),
	)
}

func (r *FixtureRepository) ListByTeam(ctx context.Context, teamID string) ([]fixture.Fixture, error) {
	return r.list(ctx, "list fixtures by team",
		qb.Expr("(home_team_id = ? OR away_team_id = ?)", teamID, teamID),
	)
}

func (r *FixtureRepository) CountActiveByTeams(ctx context.Context, teamIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(teamIDs))
	for _, id := range teamIDs {
		out[id] = 0
	}
	if len(teamIDs) == 0 {
		return out, nil
	}

	const query = `
SELECT team_id AS id, COUNT(*) AS n FROM (
  SELECT home_team_id AS team_id FROM fixtures WHERE status = 'active' AND home_team_id = ANY($1)
  UNION ALL
  SELECT away_team_id FROM fixtures WHERE status = 'active' AND away_team_id = ANY($1) AND away_team_id <> home_team_id
) sides
GROUP BY team_id`

	var rows []countRow
	if err := r.c.q.SelectContext(ctx, &rows, query, pq.StringArray(teamIDs)); err != nil {
		return nil, fmt.Errorf("count active fixtures by teams: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}

func (r *FixtureRepository) CountActiveByEvents(ctx context.Context, eventIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(eventIDs))
	for _, id := range eventIDs {
		out[id] = 0
	}
	if len(eventIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select("event_id AS id", "COUNT(*) AS n").From("fixtures").
		Where(
			qb.Eq("status", string(fixture.StatusActive)),
			qb.Any("event_id", eventIDs),
		).
		GroupBy("event_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count active fixtures by events query: %w", err)
	}

	var rows []countRow
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count active fixtures by events: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}

// ExactDuplicates orders each team pair and mirrors the scores with it, so a
// fixture reported from both sides lands in one group.
func (r *FixtureRepository) ExactDuplicates(ctx context.Context) ([][]string, error) {
	const query = `
SELECT array_agg(id ORDER BY id) AS fixture_ids
FROM fixtures
WHERE status = 'active'
GROUP BY match_date,
         LEAST(home_team_id, away_team_id),
         GREATEST(home_team_id, away_team_id),
         CASE WHEN home_team_id <= away_team_id THEN home_score ELSE away_score END,
         CASE WHEN home_team_id <= away_team_id THEN away_score ELSE home_score END
HAVING COUNT(*) > 1
ORDER BY match_date, MIN(id)`

	var rows []fixtureDuplicateRow
	if err := r.c.q.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select fixture exact duplicates: %w", err)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, append([]string(nil), row.FixtureIDs...))
	}
	return out, nil
}

func (r *FixtureRepository) Insert(ctx context.Context, f fixture.Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := r.c.requireWrite(); err != nil {
		return err
	}

	now := r.now()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	query, args, err := qb.InsertModel("fixtures", fixtureModelFromDomain(f), activeFixtureConflict)
	if err != nil {
		return fmt.Errorf("build insert fixture query: %w", err)
	}

	var insertedID string
	if err := r.c.q.GetContext(ctx, &insertedID, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.ErrActiveConflict
		}
		if isCheckViolation(err) {
			return fixture.ErrSameTeam
		}
		return fmt.Errorf("insert fixture %s: %w", f.ID, translateGate(err))
	}
	return nil
}

func (r *FixtureRepository) Update(ctx context.Context, f fixture.Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := r.c.requireWrite(); err != nil {
		return err
	}

	m := fixtureModelFromDomain(f)
	query, args, err := qb.Update("fixtures").
		Set("match_date", m.MatchDate).
		Set("match_time", m.MatchTime).
		Set("home_team_id", m.HomeTeamID).
		Set("away_team_id", m.AwayTeamID).
		Set("home_score", m.HomeScore).
		Set("away_score", m.AwayScore).
		Set("event_id", m.EventID).
		Set("source_platform", m.SourcePlatform).
		Set("source_key", m.SourceKey).
		Set("division", m.Division).
		Set("status", m.Status).
		Set("deleted_reason", m.DeletedReason).
		Set("deleted_at", m.DeletedAt).
		Set("updated_at", r.now()).
		Where(qb.Eq("id", f.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update fixture query: %w", err)
	}

	res, err := r.c.q.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fixture.ErrActiveConflict
		case isCheckViolation(err):
			return fixture.ErrSameTeam
		}
		return fmt.Errorf("update fixture %s: %w", f.ID, translateGate(err))
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("update fixture %s: %w", f.ID, fixture.ErrNotFound)
	}
	return nil
}

func (r *FixtureRepository) ReassignEvent(ctx context.Context, fromEventID, toEventID string) (int, error) {
	if err := r.c.requireWrite(); err != nil {
		return 0, err
	}
	query, args, err := qb.Update("fixtures").
		Set("event_id", toEventID).
		Set("updated_at", r.now()).
		Where(qb.Eq("event_id", fromEventID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build reassign fixture event query: %w", err)
	}
	res, err := r.c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reassign fixtures from event %s: %w", fromEventID, translateGate(err))
	}
	return rowsAffected(res), nil
}

func (r *FixtureRepository) SoftDelete(ctx context.Context, id, reason string) error {
	if err := r.c.requireWrite(); err != nil {
		return err
	}
	now := r.now()
	query, args, err := qb.Update("fixtures").
		Set("status", string(fixture.StatusSoftDeleted)).
		Set("deleted_reason", reason).
		Set("deleted_at", now).
		Set("updated_at", now).
		Where(qb.Eq("id", id), qb.Eq("status", string(fixture.StatusActive))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build soft delete fixture query: %w", err)
	}
	res, err := r.c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("soft delete fixture %s: %w", id, translateGate(err))
	}
	if rowsAffected(res) > 0 {
		return nil
	}

	// Already soft-deleted is a no-op; a missing row is not.
	_, exists, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("soft delete fixture %s: %w", id, fixture.ErrNotFound)
	}
	return nil
}

func (r *FixtureRepository) getOne(ctx context.Context, op string, conditions ...qb.Condition) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select(fixtureColumns...).From("fixtures").
		Where(conditions...).
		Limit(1).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row fixtureTableModel
	if err := r.c.q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return row.toDomain(), true, nil
}

func (r *FixtureRepository) list(ctx context.Context, op string, conditions ...qb.Condition) ([]fixture.Fixture, error) {
	query, args, err := qb.Select(fixtureColumns...).From("fixtures").
		Where(conditions...).
		OrderBy("match_date", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []fixtureTableModel
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
