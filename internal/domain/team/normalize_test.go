package team

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "punctuation in club suffix", in: "River F.C.", want: "river fc"},
		{name: "plain", in: "River FC", want: "river fc"},
		{name: "whitespace and case", in: "  Carolina   ELITE  ", want: "carolina elite"},
		{name: "accents", in: "Atlético Júniors", want: "atletico juniors"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeName(tc.in); got != tc.want {
				t.Fatalf("NormalizeName(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsUsableName(t *testing.T) {
	for _, name := range []string{"", "tbd", "bye", "tba", "unknown"} {
		if IsUsableName(NormalizeName(name)) {
			t.Fatalf("expected %q to be unusable", name)
		}
	}
	if !IsUsableName(NormalizeName("Charlotte Independence 2012B")) {
		t.Fatalf("expected real club name to be usable")
	}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		in   string
		want Gender
	}{
		{in: "boys_prem", want: GenderMale},
		{in: "U12 Girls Premier", want: GenderFemale},
		{in: "2012B", want: GenderMale},
		{in: "G", want: GenderFemale},
		{in: "Female", want: GenderFemale},
		{in: "Premier", want: GenderUnknown},
		{in: "", want: GenderUnknown},
	}

	for _, tc := range tests {
		if got := ParseGender(tc.in); got != tc.want {
			t.Fatalf("ParseGender(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAgeGroupAndBirthYear(t *testing.T) {
	tests := []struct {
		in     string
		season int
		want   int
		ok     bool
	}{
		{in: "U-12 Boys", season: 2025, want: 2014, ok: true},
		{in: "U12", season: 2025, want: 2014, ok: true},
		{in: "12U Girls", season: 2024, want: 2013, ok: true},
		{in: "Premier", season: 2025, ok: false},
		{in: "U99", season: 2025, ok: false},
	}

	for _, tc := range tests {
		age, ok := ParseAgeGroup(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseAgeGroup(%q) ok=%v want %v", tc.in, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if got := BirthYearFromAgeGroup(age, tc.season); got != tc.want {
			t.Fatalf("birth year for %q in %d = %d want %d", tc.in, tc.season, got, tc.want)
		}
	}
}

func TestParseBirthYear(t *testing.T) {
	if year, ok := ParseBirthYear("Charlotte Independence 2012B"); !ok || year != 2012 {
		t.Fatalf("expected 2012, got %d ok=%v", year, ok)
	}
	if _, ok := ParseBirthYear("Team 1850"); ok {
		t.Fatalf("expected out-of-range year to be rejected")
	}
	if _, ok := ParseBirthYear("Phone 120125"); ok {
		t.Fatalf("expected digits embedded in a longer number to be rejected")
	}
}

func TestSeasonStartYear(t *testing.T) {
	cases := map[string]int{
		"2025_fall":   2025,
		"2026_spring": 2025,
		"2024-FALL":   2024,
	}
	for code, want := range cases {
		got, ok := SeasonStartYear(code)
		if !ok || got != want {
			t.Fatalf("SeasonStartYear(%q)=%d,%v want %d", code, got, ok, want)
		}
	}
	if _, ok := SeasonStartYear("summer"); ok {
		t.Fatalf("expected unknown season code to fail")
	}
}
