package textnorm

import "testing"

func TestKey(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{in: "River F.C.", want: "river fc"},
		{in: "  River   FC ", want: "river fc"},
		{in: "St. Louis Scott Gallagher", want: "st louis scott gallagher"},
		{in: "Atlético-Juniors 2012B", want: "atletico juniors 2012b"},
		{in: "O'Fallon SC", want: "ofallon sc"},
		{in: "!!!", want: ""},
	}
	for _, tc := range cases {
		if got := Key(tc.in); got != tc.want {
			t.Fatalf("Key(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestClean(t *testing.T) {
	if got := Clean("  River \t F.C.  "); got != "River F.C." {
		t.Fatalf("unexpected clean result %q", got)
	}
}
