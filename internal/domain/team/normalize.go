package team

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riskibarqy/soccer-registry/internal/platform/textnorm"
)

var (
	ageGroupPrefixRegex = regexp.MustCompile(`(?i)\bU-?(\d{1,2})\b`)
	ageGroupSuffixRegex = regexp.MustCompile(`(?i)\b(\d{1,2})U\b`)
	birthYearRegex      = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)\d{2})(?:[^0-9]|$)`)
	seasonCodeRegex     = regexp.MustCompile(`^(\d{4})[_\- ]?(fall|spring)$`)
)

const (
	minBirthYear = 1990
	maxBirthYear = 2035
)

var placeholderNames = map[string]struct{}{
	"tbd":     {},
	"tba":     {},
	"bye":     {},
	"unknown": {},
	"na":      {},
	"n a":     {},
	"team":    {},
}

// NormalizeName returns the matching key for a team name.
func NormalizeName(name string) string {
	return textnorm.Key(name)
}

// DisplayName is the cleaned, human-facing spelling of a name.
func DisplayName(name string) string {
	return textnorm.Clean(name)
}

// IsUsableName rejects names that cannot identify a roster on their own.
func IsUsableName(normalized string) bool {
	if normalized == "" {
		return false
	}
	_, placeholder := placeholderNames[normalized]
	return !placeholder
}

// ParseGender reads the gender out of free text such as "boys_prem",
// "U12 Girls Premier", "B" or "Male".
func ParseGender(text string) Gender {
	for _, token := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		switch token {
		case "m", "b", "boy", "boys", "male", "men", "mens":
			return GenderMale
		case "f", "g", "girl", "girls", "female", "women", "womens":
			return GenderFemale
		}
	}
	return GenderUnknown
}

// ParseAgeGroup extracts the age from "U-12", "U12" or "12U".
func ParseAgeGroup(text string) (int, bool) {
	for _, re := range []*regexp.Regexp{ageGroupPrefixRegex, ageGroupSuffixRegex} {
		match := re.FindStringSubmatch(text)
		if len(match) != 2 {
			continue
		}
		age, err := strconv.Atoi(match[1])
		if err != nil || age < 4 || age > 23 {
			continue
		}
		return age, true
	}
	return 0, false
}

// BirthYearFromAgeGroup converts an age group to a birth year. Youth seasons
// start in the fall; a U12 team in the season starting 2025 is born in 2014.
func BirthYearFromAgeGroup(age, seasonStartYear int) int {
	return seasonStartYear + 1 - age
}

// ParseBirthYear finds a plausible four-digit birth year in text like "2012B".
func ParseBirthYear(text string) (int, bool) {
	match := birthYearRegex.FindStringSubmatch(text)
	if len(match) != 2 {
		return 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil || year < minBirthYear || year > maxBirthYear {
		return 0, false
	}
	return year, true
}

// SeasonStartYear maps a season code to the year the season started:
// "2025_fall" -> 2025, "2026_spring" -> 2025.
func SeasonStartYear(code string) (int, bool) {
	match := seasonCodeRegex.FindStringSubmatch(strings.ToLower(strings.TrimSpace(code)))
	if len(match) != 3 {
		return 0, false
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	if match[2] == "spring" {
		year--
	}
	return year, true
}

// ValidBirthYear reports whether year is within the range feeds can plausibly mean.
func ValidBirthYear(year int) bool {
	return year >= minBirthYear && year <= maxBirthYear
}
