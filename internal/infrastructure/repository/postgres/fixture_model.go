package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

type fixtureTableModel struct {
	ID             string         `db:"id"`
	MatchDate      time.Time      `db:"match_date"`
	MatchTime      string         `db:"match_time"`
	HomeTeamID     string         `db:"home_team_id"`
	AwayTeamID     string         `db:"away_team_id"`
	HomeScore      sql.NullInt64  `db:"home_score"`
	AwayScore      sql.NullInt64  `db:"away_score"`
	EventID        sql.NullString `db:"event_id"`
	SourcePlatform string         `db:"source_platform"`
	SourceKey      string         `db:"source_key"`
	Division       string         `db:"division"`
	Status         string         `db:"status"`
	DeletedReason  string         `db:"deleted_reason"`
	DeletedAt      sql.NullTime   `db:"deleted_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

var fixtureColumns = qb.Columns(fixtureTableModel{})

func fixtureModelFromDomain(f fixture.Fixture) fixtureTableModel {
	deletedAt := sql.NullTime{}
	if f.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *f.DeletedAt, Valid: true}
	}
	status := f.Status
	if status == "" {
		status = fixture.StatusActive
	}
	return fixtureTableModel{
		ID:             f.ID,
		MatchDate:      fixture.DateOnly(f.MatchDate),
		MatchTime:      f.MatchTime,
		HomeTeamID:     f.HomeTeamID,
		AwayTeamID:     f.AwayTeamID,
		HomeScore:      nullInt(f.HomeScore),
		AwayScore:      nullInt(f.AwayScore),
		EventID:        nullString(f.EventID),
		SourcePlatform: f.SourcePlatform,
		SourceKey:      f.SourceKey,
		Division:       f.Division,
		Status:         string(status),
		DeletedReason:  f.DeletedReason,
		DeletedAt:      deletedAt,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	var deletedAt *time.Time
	if m.DeletedAt.Valid {
		v := m.DeletedAt.Time.UTC()
		deletedAt = &v
	}
	return fixture.Fixture{
		ID:             m.ID,
		MatchDate:      fixture.DateOnly(m.MatchDate),
		MatchTime:      m.MatchTime,
		HomeTeamID:     m.HomeTeamID,
		AwayTeamID:     m.AwayTeamID,
		HomeScore:      intPtr(m.HomeScore),
		AwayScore:      intPtr(m.AwayScore),
		EventID:        m.EventID.String,
		SourcePlatform: m.SourcePlatform,
		SourceKey:      m.SourceKey,
		Division:       m.Division,
		Status:         fixture.Status(m.Status),
		DeletedReason:  m.DeletedReason,
		DeletedAt:      deletedAt,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

type countRow struct {
	ID    string `db:"id"`
	Count int    `db:"n"`
}

type fixtureDuplicateRow struct {
	FixtureIDs pq.StringArray `db:"fixture_ids"`
}
