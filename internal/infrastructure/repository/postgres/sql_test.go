package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

func TestPQCodeClassifiers(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		unique bool
		fk     bool
		check  bool
	}{
		{name: "unique", err: &pq.Error{Code: codeUniqueViolation}, unique: true},
		{name: "wrapped foreign key", err: fmt.Errorf("delete team: %w", &pq.Error{Code: codeForeignKeyViolation}), fk: true},
		{name: "check", err: &pq.Error{Code: codeCheckViolation}, check: true},
		{name: "not a pq error", err: errors.New("boom")},
		{name: "nil", err: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.unique {
				t.Fatalf("isUniqueViolation=%v want %v", got, tc.unique)
			}
			if got := isForeignKeyViolation(tc.err); got != tc.fk {
				t.Fatalf("isForeignKeyViolation=%v want %v", got, tc.fk)
			}
			if got := isCheckViolation(tc.err); got != tc.check {
				t.Fatalf("isCheckViolation=%v want %v", got, tc.check)
			}
		})
	}
}

func TestTranslateGate(t *testing.T) {
	gate := &pq.Error{Code: codeWriteGate, Message: "write to teams requires the pipeline write token"}
	if err := translateGate(gate); !errors.Is(err, writeauth.ErrWriteNotAuthorized) {
		t.Fatalf("expected write gate to map to ErrWriteNotAuthorized, got %v", err)
	}

	other := &pq.Error{Code: codeUniqueViolation}
	if err := translateGate(other); err != other {
		t.Fatalf("unrelated errors must pass through, got %v", err)
	}
	if translateGate(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("select team: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to be not found")
	}
	if isNotFound(errors.New("connection reset")) {
		t.Fatalf("unexpected not found for unrelated error")
	}
}

func TestNullableConversions(t *testing.T) {
	if v := nullInt(nil); v.Valid {
		t.Fatalf("nil int must be NULL")
	}
	year := 2012
	if v := nullInt(&year); !v.Valid || v.Int64 != 2012 {
		t.Fatalf("unexpected null int: %+v", v)
	}
	if got := intPtr(sql.NullInt64{Int64: 3, Valid: true}); got == nil || *got != 3 {
		t.Fatalf("unexpected int ptr: %v", got)
	}
	if got := intPtr(sql.NullInt64{}); got != nil {
		t.Fatalf("NULL must map to nil")
	}
	if v := nullString("  "); v.Valid {
		t.Fatalf("blank string must be NULL")
	}
	if v := nullString(" ev-1 "); !v.Valid || v.String != "ev-1" {
		t.Fatalf("unexpected null string: %+v", v)
	}
	if got := nonNilStrings(nil); got == nil || len(got) != 0 {
		t.Fatalf("nil slice must become an empty array")
	}
}

func TestReadConnRejectsWrites(t *testing.T) {
	if err := (conn{}).requireWrite(); !errors.Is(err, writeauth.ErrWriteNotAuthorized) {
		t.Fatalf("expected ErrWriteNotAuthorized, got %v", err)
	}
	if err := (conn{writable: true}).requireWrite(); err != nil {
		t.Fatalf("writable conn: %v", err)
	}
}

func TestModelColumns(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		want []string
	}{
		{name: "teams", cols: teamColumns, want: []string{"id", "normalized_name", "birth_year", "quality_flags"}},
		{name: "fixtures", cols: fixtureColumns, want: []string{"match_date", "home_team_id", "status", "deleted_reason"}},
		{name: "registry", cols: registryColumns, want: []string{"entity_type", "alias_keys", "source_ids"}},
		{name: "raw records", cols: rawRecordColumns, want: []string{"seq", "payload", "status"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			have := make(map[string]bool, len(tc.cols))
			for _, c := range tc.cols {
				have[c] = true
			}
			for _, w := range tc.want {
				if !have[w] {
					t.Fatalf("column %s missing from %v", w, tc.cols)
				}
			}
		})
	}
}
