package team

import (
	"regexp"
	"sort"
	"strings"
)

// Region is a US state, the unit youth soccer leagues are organized by.
type Region struct {
	Code string
	Name string
}

var knownRegions = []Region{
	{"AL", "Alabama"}, {"AK", "Alaska"}, {"AZ", "Arizona"}, {"AR", "Arkansas"},
	{"CA", "California"}, {"CO", "Colorado"}, {"CT", "Connecticut"}, {"DE", "Delaware"},
	{"DC", "District of Columbia"}, {"FL", "Florida"}, {"GA", "Georgia"}, {"HI", "Hawaii"},
	{"ID", "Idaho"}, {"IL", "Illinois"}, {"IN", "Indiana"}, {"IA", "Iowa"},
	{"KS", "Kansas"}, {"KY", "Kentucky"}, {"LA", "Louisiana"}, {"ME", "Maine"},
	{"MD", "Maryland"}, {"MA", "Massachusetts"}, {"MI", "Michigan"}, {"MN", "Minnesota"},
	{"MS", "Mississippi"}, {"MO", "Missouri"}, {"MT", "Montana"}, {"NE", "Nebraska"},
	{"NV", "Nevada"}, {"NH", "New Hampshire"}, {"NJ", "New Jersey"}, {"NM", "New Mexico"},
	{"NY", "New York"}, {"NC", "North Carolina"}, {"ND", "North Dakota"}, {"OH", "Ohio"},
	{"OK", "Oklahoma"}, {"OR", "Oregon"}, {"PA", "Pennsylvania"}, {"RI", "Rhode Island"},
	{"SC", "South Carolina"}, {"SD", "South Dakota"}, {"TN", "Tennessee"}, {"TX", "Texas"},
	{"UT", "Utah"}, {"VT", "Vermont"}, {"VA", "Virginia"}, {"WA", "Washington"},
	{"WV", "West Virginia"}, {"WI", "Wisconsin"}, {"WY", "Wyoming"},
}

var (
	// Longest name first: "west virginia" must win over "virginia".
	regionsByNameLength = sortedByNameLength(knownRegions)
	regionCodes         = codeSet(knownRegions)
	locationCodeRegex   = regexp.MustCompile(`,\s*([A-Z]{2})(?:\s|,|$)`)
)

// InferRegion returns the code of the first known region whose full name
// appears as whole words in text, trying longer names first.
func InferRegion(text string) string {
	haystack := " " + NormalizeName(text) + " "
	if strings.TrimSpace(haystack) == "" {
		return ""
	}
	for _, r := range regionsByNameLength {
		if strings.Contains(haystack, " "+NormalizeName(r.Name)+" ") {
			return r.Code
		}
	}
	return ""
}

// RegionFromLocation reads "City, ST" style locations, falling back to full
// region names anywhere in the string.
func RegionFromLocation(location string) string {
	if match := locationCodeRegex.FindStringSubmatch(location); len(match) == 2 {
		if _, ok := regionCodes[match[1]]; ok {
			return match[1]
		}
	}
	return InferRegion(location)
}

// NormalizeRegion accepts either a code ("nc") or a full name ("North Carolina").
func NormalizeRegion(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if code := strings.ToUpper(value); len(code) == 2 {
		if _, ok := regionCodes[code]; ok {
			return code
		}
	}
	return InferRegion(value)
}

func sortedByNameLength(in []Region) []Region {
	out := append([]Region(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Name) > len(out[j].Name)
	})
	return out
}

func codeSet(in []Region) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, r := range in {
		out[r.Code] = struct{}{}
	}
	return out
}
