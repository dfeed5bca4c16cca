package fixture

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle of a fixture row. Fixtures are never hard-deleted.
type Status string

const (
	StatusActive      Status = "active"
	StatusSoftDeleted Status = "soft_deleted"
)

const (
	ReasonIntraSquad          = "intra_squad"
	duplicateOfPrefix         = "duplicate_of:"
	semanticDuplicateOfPrefix = "semantic_duplicate_of:"
)

// Fixture is one canonical match between two canonical teams.
type Fixture struct {
	ID             string
	MatchDate      time.Time
	MatchTime      string
	HomeTeamID     string
	AwayTeamID     string
	HomeScore      *int
	AwayScore      *int
	EventID        string
	SourcePlatform string
	SourceKey      string
	Division       string
	Status         Status
	DeletedReason  string
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DuplicateOf is the soft-delete reason for a fixture collapsed into keptID.
func DuplicateOf(keptID string) string {
	return duplicateOfPrefix + keptID
}

// SemanticDuplicateOf is the soft-delete reason for a fixture that became a
// second copy of keptID once its team was merged away.
func SemanticDuplicateOf(keptID string) string {
	return semanticDuplicateOfPrefix + keptID
}

// DuplicateTarget returns the kept fixture id encoded in a soft-delete reason.
func DuplicateTarget(reason string) (string, bool) {
	if !strings.HasPrefix(reason, duplicateOfPrefix) {
		return "", false
	}
	return strings.TrimPrefix(reason, duplicateOfPrefix), true
}

func (f Fixture) IsActive() bool {
	return f.Status == StatusActive || f.Status == ""
}

// HasResult is true when both scores are recorded.
func (f Fixture) HasResult() bool {
	return f.HomeScore != nil && f.AwayScore != nil
}

// IsZeroZero reports a stored 0-0. Stored 0-0s are real results: future-dated
// placeholders are dropped before they reach the table.
func (f Fixture) IsZeroZero() bool {
	return f.HasResult() && *f.HomeScore == 0 && *f.AwayScore == 0
}

// Involves reports whether teamID plays in f.
func (f Fixture) Involves(teamID string) bool {
	return f.HomeTeamID == teamID || f.AwayTeamID == teamID
}

// Opponent returns the other side of the fixture from teamID.
func (f Fixture) Opponent(teamID string) string {
	if f.HomeTeamID == teamID {
		return f.AwayTeamID
	}
	return f.HomeTeamID
}

// Key identifies the active-uniqueness slot of a fixture.
func (f Fixture) Key() Key {
	return Key{MatchDate: DateOnly(f.MatchDate), HomeTeamID: f.HomeTeamID, AwayTeamID: f.AwayTeamID}
}

func (f Fixture) Validate() error {
	if f.HomeTeamID == "" || f.AwayTeamID == "" {
		return fmt.Errorf("fixture team ids are required")
	}
	if f.HomeTeamID == f.AwayTeamID && f.IsActive() {
		return ErrSameTeam
	}
	if f.MatchDate.IsZero() {
		return fmt.Errorf("fixture match date is required")
	}
	if (f.HomeScore == nil) != (f.AwayScore == nil) {
		return fmt.Errorf("fixture scores must be both set or both empty")
	}
	return nil
}

// Key is (date, home, away). Only one active fixture may hold a key.
type Key struct {
	MatchDate  time.Time
	HomeTeamID string
	AwayTeamID string
}

func (k Key) Reversed() Key {
	return Key{MatchDate: k.MatchDate, HomeTeamID: k.AwayTeamID, AwayTeamID: k.HomeTeamID}
}

func (k Key) String() string {
	return k.MatchDate.Format(time.DateOnly) + "|" + k.HomeTeamID + "|" + k.AwayTeamID
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CanonicalResultKey identifies a fixture independent of orientation: the
// team pair is ordered and the scores are mirrored with it.
func CanonicalResultKey(f Fixture) string {
	home, away := f.HomeTeamID, f.AwayTeamID
	hs, as := scoreText(f.HomeScore), scoreText(f.AwayScore)
	if home > away {
		home, away = away, home
		hs, as = as, hs
	}
	return strings.Join([]string{DateOnly(f.MatchDate).Format(time.DateOnly), home, away, hs, as}, "|")
}

func scoreText(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
