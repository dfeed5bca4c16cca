package similarity

import (
	"math"
	"testing"
)

func TestTrigram(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "river fc", b: "River FC", want: 1},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
		{name: "empty", a: "", b: "river", want: 0},
		// word/wore: {"  w"," wo","wor","ord","rd "} vs {"  w"," wo","wor","ore","re "}
		{name: "one letter off", a: "word", b: "wore", want: 3.0 / 7.0},
		{name: "punctuation splits words", a: "river f.c.", b: "river f c", want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Trigram(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Trigram(%q, %q)=%f want %f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestTrigram_Symmetric(t *testing.T) {
	a, b := "sporting kc academy", "sporting kansas city academy"
	if Trigram(a, b) != Trigram(b, a) {
		t.Fatalf("similarity must be symmetric")
	}
}

func TestTrigrams_Count(t *testing.T) {
	got := Trigrams("cat")
	// "  c", " ca", "cat", "at "
	if len(got) != 4 {
		t.Fatalf("expected 4 trigrams, got %d: %v", len(got), got)
	}
}
