package team

import "testing"

func TestInferRegion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "North Carolina FC Youth 2012", want: "NC"},
		{in: "West Virginia Fury", want: "WV"},
		{in: "Virginia Development Academy", want: "VA"},
		{in: "Arkansas Rising", want: "AR"},
		{in: "New York Red Bulls Academy", want: "NY"},
		{in: "Carolina Elite", want: ""},
		{in: "", want: ""},
	}

	for _, tc := range tests {
		if got := InferRegion(tc.in); got != tc.want {
			t.Fatalf("InferRegion(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegionFromLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Charlotte, NC", want: "NC"},
		{in: "Kansas City, MO 64101", want: "MO"},
		{in: "Richmond, Virginia", want: "VA"},
		{in: "Somewhere, ZZ", want: ""},
	}

	for _, tc := range tests {
		if got := RegionFromLocation(tc.in); got != tc.want {
			t.Fatalf("RegionFromLocation(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRegion(t *testing.T) {
	if got := NormalizeRegion("nc"); got != "NC" {
		t.Fatalf("expected NC, got %q", got)
	}
	if got := NormalizeRegion("South Carolina"); got != "SC" {
		t.Fatalf("expected SC, got %q", got)
	}
	if got := NormalizeRegion("   "); got != "" {
		t.Fatalf("expected empty region, got %q", got)
	}
}
