package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

type TeamRepository struct {
	c   conn
	now func() time.Time
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns...).From("teams").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team by id query: %w", err)
	}

	var row teamTableModel
	if err := r.c.q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team by id: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *TeamRepository) ListByIDs(ctx context.Context, ids []string) ([]team.Team, error) {
	if len(ids) == 0 {
		return []team.Team{}, nil
	}
	return r.list(ctx, "list teams by ids", qb.InStrings("id", ids))
}

func (r *TeamRepository) FindByAttributes(ctx context.Context, normalizedName string, birthYear *int, gender team.Gender) ([]team.Team, error) {
	year := qb.IsNull("birth_year")
	if birthYear != nil {
		year = qb.Eq("birth_year", *birthYear)
	}
	return r.list(ctx, "find teams by attributes",
		qb.Eq("normalized_name", normalizedName),
		year,
		qb.Eq("gender", string(gender)),
	)
}

func (r *TeamRepository) FindWithUnknownBirthYear(ctx context.Context, normalizedName string) ([]team.Team, error) {
	return r.list(ctx, "find teams with unknown birth year",
		qb.Eq("normalized_name", normalizedName),
		qb.Expr("COALESCE(birth_year, 0) = 0"),
	)
}

func (r *TeamRepository) ExactDuplicates(ctx context.Context) ([]team.DuplicateKey, error) {
	query, args, err := qb.Select(
		"normalized_name",
		"NULLIF(COALESCE(birth_year, 0), 0) AS birth_year",
		"gender",
		"array_agg(id ORDER BY id) AS team_ids",
	).From("teams").
		GroupBy("normalized_name", "COALESCE(birth_year, 0)", "gender").
		Having(qb.Expr("COUNT(*) > 1")).
		OrderBy("MIN(id)").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build team exact duplicates query: %w", err)
	}

	var rows []teamDuplicateRow
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select team exact duplicates: %w", err)
	}

	out := make([]team.DuplicateKey, 0, len(rows))
	for _, row := range rows {
		out = append(out, team.DuplicateKey{
			NormalizedName: row.NormalizedName,
			BirthYear:      intPtr(row.BirthYear),
			Gender:         team.Gender(row.Gender),
			TeamIDs:        append([]string(nil), row.TeamIDs...),
		})
	}
	return out, nil
}

// SimilarPairs relies on pg_trgm. The % operator prefilters through the
// trigram index at the extension's default threshold; the WHERE clause then
// applies the caller's bound.
func (r *TeamRepository) SimilarPairs(ctx context.Context, q team.PairQuery) ([]team.SimilarPair, error) {
	const query = `
SELECT a.id AS a_id, b.id AS b_id, similarity(a.normalized_name, b.normalized_name) AS similarity
FROM teams a
JOIN teams b ON a.id < b.id AND a.normalized_name % b.normalized_name
WHERE (a.gender = b.gender OR a.gender = '' OR b.gender = '')
  AND (a.birth_year IS NULL OR b.birth_year IS NULL OR abs(a.birth_year - b.birth_year) <= 1)
  AND similarity(a.normalized_name, b.normalized_name) >= $1
ORDER BY similarity DESC, a.id, b.id`

	var rows []teamPairRow
	if err := r.c.q.SelectContext(ctx, &rows, query, q.MinSimilarity); err != nil {
		return nil, fmt.Errorf("select similar team pairs: %w", err)
	}
	if len(rows) == 0 {
		return []team.SimilarPair{}, nil
	}

	ids := make([]string, 0, len(rows)*2)
	for _, row := range rows {
		ids = append(ids, row.AID, row.BID)
	}
	teams, err := r.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]team.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	out := make([]team.SimilarPair, 0, len(rows))
	for _, row := range rows {
		a, okA := byID[row.AID]
		b, okB := byID[row.BID]
		if !okA || !okB {
			continue
		}
		out = append(out, team.SimilarPair{A: a, B: b, Similarity: row.Similarity})
	}
	return out, nil
}

func (r *TeamRepository) Create(ctx context.Context, t team.Team) (team.Team, bool, error) {
	if err := t.Validate(); err != nil {
		return team.Team{}, false, err
	}
	if err := r.c.requireWrite(); err != nil {
		return team.Team{}, false, err
	}

	now := r.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	query, args, err := qb.InsertModel("teams", teamModelFromDomain(t), "ON CONFLICT DO NOTHING RETURNING id")
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build insert team query: %w", err)
	}

	var insertedID string
	err = r.c.q.GetContext(ctx, &insertedID, query, args...)
	switch {
	case err == nil:
		return t, true, nil
	case !isNotFound(err):
		return team.Team{}, false, fmt.Errorf("insert team %s: %w", t.ID, translateGate(err))
	}

	// The identity key was taken: hand back the row that holds it.
	identity := t.Identity()
	query, args, err = qb.Select(teamColumns...).From("teams").
		Where(
			qb.Eq("normalized_name", identity.NormalizedName),
			qb.Expr("COALESCE(birth_year, 0) = ?", identity.BirthYear),
			qb.Eq("gender", string(identity.Gender)),
			qb.Eq("region", identity.Region),
		).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team by identity query: %w", err)
	}
	var row teamTableModel
	if err := r.c.q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, fmt.Errorf("create team %s: id already exists", t.ID)
		}
		return team.Team{}, false, fmt.Errorf("select team by identity: %w", err)
	}
	return row.toDomain(), false, nil
}

func (r *TeamRepository) UpdateStats(ctx context.Context, id string, stats team.Stats) error {
	if err := r.c.requireWrite(); err != nil {
		return err
	}
	query, args, err := qb.Update("teams").
		Set("matches_played", stats.MatchesPlayed).
		Set("wins", stats.Wins).
		Set("losses", stats.Losses).
		Set("draws", stats.Draws).
		Set("updated_at", r.now()).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update team stats query: %w", err)
	}
	return r.execOne(ctx, "update team stats", id, query, args)
}

func (r *TeamRepository) AddQualityFlags(ctx context.Context, id string, flags []string) error {
	if err := r.c.requireWrite(); err != nil {
		return err
	}
	query, args, err := qb.Update("teams").
		SetExpr("quality_flags",
			"ARRAY(SELECT f FROM unnest(quality_flags || ?::text[]) WITH ORDINALITY AS u(f, n) GROUP BY f ORDER BY MIN(n))",
			pq.StringArray(flags)).
		Set("updated_at", r.now()).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build add team quality flags query: %w", err)
	}
	return r.execOne(ctx, "add team quality flags", id, query, args)
}

func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	if err := r.c.requireWrite(); err != nil {
		return err
	}

	query, args, err := qb.DeleteFrom("team_rating_history").Where(qb.Eq("team_id", id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete team rating history query: %w", err)
	}
	if _, err := r.c.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete team rating history %s: %w", id, translateGate(err))
	}

	query, args, err = qb.DeleteFrom("teams").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete team query: %w", err)
	}
	err = r.execOne(ctx, "delete team", id, query, args)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("delete team %s: %w", id, fixture.ErrReferenced)
	}
	return err
}

func (r *TeamRepository) list(ctx context.Context, op string, conditions ...qb.Condition) ([]team.Team, error) {
	query, args, err := qb.Select(teamColumns...).From("teams").
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []teamTableModel
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TeamRepository) execOne(ctx context.Context, op, id, query string, args []any) error {
	res, err := r.c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, translateGate(err))
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("%s %s: team not found", op, id)
	}
	return nil
}
