package app

import (
	"strings"
	"testing"
)

func TestFormatDBQueryForTrace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses whitespace",
			in:   " SELECT   id\nFROM fixtures \t WHERE status = 'active' AND home_team_id = ANY($1) ",
			want: "SELECT id FROM fixtures WHERE status = 'active' AND home_team_id = ANY($1)",
		},
		{name: "empty", in: "  ", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatDBQueryForTrace(tc.in); got != tc.want {
				t.Fatalf("unexpected formatted query: %q", got)
			}
		})
	}

	t.Run("truncates long inserts", func(t *testing.T) {
		in := "INSERT INTO raw_records (id, kind, payload) VALUES " + strings.Repeat("($1, $2, $3), ", 100)
		got := formatDBQueryForTrace(in)
		if len(got) != maxTracedQueryLength+3 || !strings.HasSuffix(got, "...") {
			t.Fatalf("expected truncated query, got len %d", len(got))
		}
	})
}
