package querybuilder

import (
	"testing"

	"github.com/lib/pq"
)

func TestSelectBuilder(t *testing.T) {
	tests := []struct {
		name      string
		build     func() (string, []any, error)
		wantQuery string
		wantArgs  int
	}{
		{
			name: "where order limit",
			build: func() (string, []any, error) {
				return Select("id", "name").
					From("teams").
					Where(Eq("gender", "M"), IsNull("birth_year")).
					OrderBy("id").
					Limit(10).
					ToSQL()
			},
			wantQuery: "SELECT id, name FROM teams WHERE gender = $1 AND birth_year IS NULL ORDER BY id LIMIT 10",
			wantArgs:  1,
		},
		{
			name: "group having",
			build: func() (string, []any, error) {
				return Select("kind", "array_agg(id ORDER BY id)").
					From("events").
					Where(Gt("seq", int64(4))).
					GroupBy("kind", "lower(name)").
					Having(Expr("COUNT(*) > ?", 1)).
					ToSQL()
			},
			wantQuery: "SELECT kind, array_agg(id ORDER BY id) FROM events WHERE seq > $1 GROUP BY kind, lower(name) HAVING COUNT(*) > $2",
			wantArgs:  2,
		},
		{
			name: "array predicates and lock",
			build: func() (string, []any, error) {
				return Select("canonical_id").
					From("canonical_registry").
					Where(Eq("entity_type", "team"), ArrayContains("source_ids", "gotsport:884")).
					ForUpdate().
					ToSQL()
			},
			wantQuery: "SELECT canonical_id FROM canonical_registry WHERE entity_type = $1 AND $2 = ANY(source_ids) FOR UPDATE",
			wantArgs:  2,
		},
		{
			name: "empty in matches nothing",
			build: func() (string, []any, error) {
				return Select("id").From("teams").Where(InStrings("id", nil)).ToSQL()
			},
			wantQuery: "SELECT id FROM teams WHERE 1=0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			query, args, err := tc.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if query != tc.wantQuery {
				t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", tc.wantQuery, query)
			}
			if len(args) != tc.wantArgs {
				t.Fatalf("expected %d args, got %+v", tc.wantArgs, args)
			}
		})
	}
}

func TestAnyBindsOneArray(t *testing.T) {
	query, args, err := Select("id").
		From("fixtures").
		Where(Eq("status", "active"), Any("event_id", []string{"e-1", "e-2"})).
		ToSQL()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := "SELECT id FROM fixtures WHERE status = $1 AND event_id = ANY($2)"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	arr, ok := args[1].(pq.StringArray)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected text[] argument, got %T %+v", args[1], args[1])
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("teams").
		Columns("id", "name").
		Values("t-1", "River FC").
		Suffix("ON CONFLICT DO NOTHING RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO teams (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "t-1" || args[1] != "River FC" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertInto("teams").Columns("id", "name").Values("t-1").ToSQL(); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("teams").
		Set("wins", 3).
		SetExpr("quality_flags", "quality_flags || ?::text[]", pq.StringArray{"missing_gender"}).
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", "t-1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE teams SET wins = $1, quality_flags = quality_flags || $2::text[], updated_at = NOW() WHERE id = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != 3 || args[2] != "t-1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUnconditionalWritesAreRejected(t *testing.T) {
	if _, _, err := Update("fixtures").Set("status", "soft_deleted").ToSQL(); err == nil {
		t.Fatalf("expected update without where to fail")
	}
	if _, _, err := DeleteFrom("teams").ToSQL(); err == nil {
		t.Fatalf("expected delete without where to fail")
	}

	query, args, err := DeleteFrom("team_rating_history").Where(Eq("team_id", "t-b")).ToSQL()
	if err != nil {
		t.Fatalf("build delete: %v", err)
	}
	if query != "DELETE FROM team_rating_history WHERE team_id = $1" || len(args) != 1 {
		t.Fatalf("unexpected delete: %s %+v", query, args)
	}
}
