package usecase

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
)

type teamSnapshot struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DisplayName    string    `json:"display_name"`
	NormalizedName string    `json:"normalized_name"`
	BirthYear      *int      `json:"birth_year"`
	Gender         string    `json:"gender"`
	Region         string    `json:"region"`
	MatchesPlayed  int       `json:"matches_played"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	Draws          int       `json:"draws"`
	Rating         *float64  `json:"rating"`
	QualityFlags   []string  `json:"quality_flags"`
	ActiveFixtures int       `json:"active_fixtures"`
	Aliases        []string  `json:"aliases"`
	SourceIDs      []string  `json:"source_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type fixtureSnapshot struct {
	ID             string     `json:"id"`
	MatchDate      string     `json:"match_date"`
	MatchTime      string     `json:"match_time,omitempty"`
	HomeTeamID     string     `json:"home_team_id"`
	AwayTeamID     string     `json:"away_team_id"`
	HomeScore      *int       `json:"home_score"`
	AwayScore      *int       `json:"away_score"`
	EventID        string     `json:"event_id,omitempty"`
	SourcePlatform string     `json:"source_platform,omitempty"`
	SourceKey      string     `json:"source_key,omitempty"`
	Division       string     `json:"division,omitempty"`
	Status         string     `json:"status"`
	DeletedReason  string     `json:"deleted_reason,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type eventSnapshot struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	SourcePlatform string     `json:"source_platform"`
	SourceEventID  string     `json:"source_event_id"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	ActiveFixtures int        `json:"active_fixtures"`
	Aliases        []string   `json:"aliases"`
	SourceIDs      []string   `json:"source_ids"`
	CreatedAt      time.Time  `json:"created_at"`
}

// mergeTarget is the after snapshot of a removed row.
type mergeTarget struct {
	MergedInto string  `json:"merged_into"`
	Detector   string  `json:"detector"`
	GroupKey   string  `json:"group_key"`
	Similarity float64 `json:"similarity"`
	KeepReason string  `json:"keep_reason"`
}

func snapshotTeam(t team.Team, entry registry.Entry, activeFixtures int) ([]byte, error) {
	return sonic.Marshal(teamSnapshot{
		ID:             t.ID,
		Name:           t.Name,
		DisplayName:    t.DisplayName,
		NormalizedName: t.NormalizedName,
		BirthYear:      t.BirthYear,
		Gender:         string(t.Gender),
		Region:         t.Region,
		MatchesPlayed:  t.MatchesPlayed,
		Wins:           t.Wins,
		Losses:         t.Losses,
		Draws:          t.Draws,
		Rating:         t.Rating,
		QualityFlags:   t.QualityFlags,
		ActiveFixtures: activeFixtures,
		Aliases:        entry.Aliases,
		SourceIDs:      entry.SourceIDs,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	})
}

func snapshotFixture(f fixture.Fixture) ([]byte, error) {
	return sonic.Marshal(fixtureSnapshot{
		ID:             f.ID,
		MatchDate:      f.MatchDate.Format(time.DateOnly),
		MatchTime:      f.MatchTime,
		HomeTeamID:     f.HomeTeamID,
		AwayTeamID:     f.AwayTeamID,
		HomeScore:      f.HomeScore,
		AwayScore:      f.AwayScore,
		EventID:        f.EventID,
		SourcePlatform: f.SourcePlatform,
		SourceKey:      f.SourceKey,
		Division:       f.Division,
		Status:         string(f.Status),
		DeletedReason:  f.DeletedReason,
		DeletedAt:      f.DeletedAt,
		CreatedAt:      f.CreatedAt,
	})
}

func snapshotEvent(e event.Event, entry registry.Entry, activeFixtures int) ([]byte, error) {
	return sonic.Marshal(eventSnapshot{
		ID:             e.ID,
		Name:           e.Name,
		Kind:           string(e.Kind),
		SourcePlatform: e.SourcePlatform,
		SourceEventID:  e.SourceEventID,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		ActiveFixtures: activeFixtures,
		Aliases:        entry.Aliases,
		SourceIDs:      entry.SourceIDs,
		CreatedAt:      e.CreatedAt,
	})
}

func snapshotTarget(t mergeTarget) ([]byte, error) {
	return sonic.Marshal(t)
}
