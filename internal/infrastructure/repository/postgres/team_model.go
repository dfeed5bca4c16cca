package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

type teamTableModel struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	DisplayName    string          `db:"display_name"`
	NormalizedName string          `db:"normalized_name"`
	BirthYear      sql.NullInt64   `db:"birth_year"`
	Gender         string          `db:"gender"`
	Region         string          `db:"region"`
	MatchesPlayed  int             `db:"matches_played"`
	Wins           int             `db:"wins"`
	Losses         int             `db:"losses"`
	Draws          int             `db:"draws"`
	Rating         sql.NullFloat64 `db:"rating"`
	QualityFlags   pq.StringArray  `db:"quality_flags"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

var teamColumns = qb.Columns(teamTableModel{})

func teamModelFromDomain(t team.Team) teamTableModel {
	rating := sql.NullFloat64{}
	if t.Rating != nil {
		rating = sql.NullFloat64{Float64: *t.Rating, Valid: true}
	}
	return teamTableModel{
		ID:             t.ID,
		Name:           t.Name,
		DisplayName:    t.DisplayName,
		NormalizedName: t.NormalizedName,
		BirthYear:      nullInt(t.BirthYear),
		Gender:         string(t.Gender),
		Region:         t.Region,
		MatchesPlayed:  t.MatchesPlayed,
		Wins:           t.Wins,
		Losses:         t.Losses,
		Draws:          t.Draws,
		Rating:         rating,
		QualityFlags:   nonNilStrings(t.QualityFlags),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:             m.ID,
		Name:           m.Name,
		DisplayName:    m.DisplayName,
		NormalizedName: m.NormalizedName,
		BirthYear:      intPtr(m.BirthYear),
		Gender:         team.Gender(m.Gender),
		Region:         m.Region,
		MatchesPlayed:  m.MatchesPlayed,
		Wins:           m.Wins,
		Losses:         m.Losses,
		Draws:          m.Draws,
		Rating:         floatPtr(m.Rating),
		QualityFlags:   append([]string(nil), m.QualityFlags...),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

type teamDuplicateRow struct {
	NormalizedName string         `db:"normalized_name"`
	BirthYear      sql.NullInt64  `db:"birth_year"`
	Gender         string         `db:"gender"`
	TeamIDs        pq.StringArray `db:"team_ids"`
}

type teamPairRow struct {
	AID        string  `db:"a_id"`
	BID        string  `db:"b_id"`
	Similarity float64 `db:"similarity"`
}
