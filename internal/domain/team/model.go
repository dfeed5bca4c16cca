package team

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Gender is the roster gender as far as the feeds tell us. The empty value
// means the feed did not say.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = ""
)

// Team is the canonical identity for one roster (club + age group + gender).
type Team struct {
	ID             string
	Name           string
	DisplayName    string
	NormalizedName string
	BirthYear      *int
	Gender         Gender
	Region         string
	MatchesPlayed  int
	Wins           int
	Losses         int
	Draws          int
	Rating         *float64
	QualityFlags   []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stats are the aggregate counters derived from a team's active fixtures.
type Stats struct {
	MatchesPlayed int
	Wins          int
	Losses        int
	Draws         int
}

// IdentityKey is the uniqueness key of the teams table. A missing birth year
// is stored as 0 so that two unknown-year rows collide like the SQL index does.
type IdentityKey struct {
	NormalizedName string
	BirthYear      int
	Gender         Gender
	Region         string
}

func (k IdentityKey) String() string {
	return strings.Join([]string{k.NormalizedName, strconv.Itoa(k.BirthYear), string(k.Gender), k.Region}, "|")
}

func (t Team) Identity() IdentityKey {
	return IdentityKey{
		NormalizedName: t.NormalizedName,
		BirthYear:      derefInt(t.BirthYear),
		Gender:         t.Gender,
		Region:         t.Region,
	}
}

func (t Team) Stats() Stats {
	return Stats{MatchesPlayed: t.MatchesPlayed, Wins: t.Wins, Losses: t.Losses, Draws: t.Draws}
}

func (t Team) HasBirthYear() bool {
	return t.BirthYear != nil && *t.BirthYear > 0
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.NormalizedName == "" {
		return fmt.Errorf("team normalized name is required")
	}
	switch t.Gender {
	case GenderMale, GenderFemale, GenderUnknown:
	default:
		return fmt.Errorf("team gender %q is invalid", t.Gender)
	}

	return nil
}

// SameBirthYear reports whether both years are set and equal.
func SameBirthYear(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}

// CompatibleGender is true when both genders agree or either side is unknown.
func CompatibleGender(a, b Gender) bool {
	return a == b || a == GenderUnknown || b == GenderUnknown
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
