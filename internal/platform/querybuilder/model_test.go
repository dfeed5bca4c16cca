package querybuilder

import "testing"

type aliasRow struct {
	EntityType  string `db:"entity_type"`
	CanonicalID string `db:"canonical_id"`
	Ignored     string `db:"-"`
	unexported  string `db:"hidden"`
}

func TestInsertModel(t *testing.T) {
	query, args, err := InsertModel("canonical_registry", aliasRow{EntityType: "team", CanonicalID: "t1"}, "ON CONFLICT DO NOTHING")
	if err != nil {
		t.Fatalf("build insert model: %v", err)
	}

	want := "INSERT INTO canonical_registry (entity_type, canonical_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 2 || args[1] != "t1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModels(t *testing.T) {
	rows := []aliasRow{{EntityType: "team", CanonicalID: "t1"}, {EntityType: "event", CanonicalID: "e1"}}
	query, args, err := InsertModels("canonical_registry", rows, "")
	if err != nil {
		t.Fatalf("build insert models: %v", err)
	}

	want := "INSERT INTO canonical_registry (entity_type, canonical_id) VALUES ($1, $2), ($3, $4)"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 4 || args[2] != "event" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestColumns(t *testing.T) {
	cols := Columns(&aliasRow{})
	if len(cols) != 2 || cols[0] != "entity_type" || cols[1] != "canonical_id" {
		t.Fatalf("unexpected columns: %+v", cols)
	}
	if Columns(42) != nil {
		t.Fatalf("expected nil columns for non-struct")
	}
}
