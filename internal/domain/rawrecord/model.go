package rawrecord

import (
	"context"
	"time"
)

type Kind string

const (
	KindTeam    Kind = "team"
	KindFixture Kind = "fixture"
	KindEvent   Kind = "event"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Record is a candidate submitted by a collector. Nothing about it is trusted:
// names are unnormalized, ids are feed-specific and any field may be missing.
type Record struct {
	ID  string `json:"id"`
	Seq int64  `json:"-"`

	Kind           Kind   `json:"kind" validate:"required,oneof=team fixture event"`
	SourcePlatform string `json:"source_platform" validate:"max=64"`
	SourceID       string `json:"source_id" validate:"max=256"`

	Name      string `json:"name" validate:"required_unless=Kind fixture,max=256"`
	BirthYear *int   `json:"birth_year" validate:"omitempty,gte=1990,lte=2035"`
	AgeGroup  string `json:"age_group" validate:"max=32"`
	Season    string `json:"season" validate:"max=32"`
	Gender    string `json:"gender" validate:"max=32"`
	Location  string `json:"location" validate:"max=256"`
	Region    string `json:"region" validate:"max=64"`

	HomeName     string `json:"home_name" validate:"required_if=Kind fixture,max=256"`
	AwayName     string `json:"away_name" validate:"required_if=Kind fixture,max=256"`
	HomeSourceID string `json:"home_source_id" validate:"max=256"`
	AwaySourceID string `json:"away_source_id" validate:"max=256"`
	MatchDate    string `json:"match_date" validate:"required_if=Kind fixture"`
	MatchTime    string `json:"match_time" validate:"max=16"`
	HomeScore    *int   `json:"home_score" validate:"omitempty,gte=0"`
	AwayScore    *int   `json:"away_score" validate:"omitempty,gte=0"`
	Division     string `json:"division" validate:"max=128"`

	EventSourceID string `json:"event_source_id" validate:"max=256"`
	EventName     string `json:"event_name" validate:"max=256"`
	EventKind     string `json:"event_kind" validate:"omitempty,oneof=league tournament cup showcase"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`

	Status      Status     `json:"status,omitempty"`
	SkipReason  string     `json:"skip_reason,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Outcome is the result of processing one record.
type Outcome struct {
	ID          string
	Status      Status
	Reason      string
	ProcessedAt time.Time
}

type Repository interface {
	Append(ctx context.Context, records []Record) error
	// ListPending returns up to limit pending records with Seq > afterSeq in Seq order.
	ListPending(ctx context.Context, afterSeq int64, limit int) ([]Record, error)
	MarkProcessed(ctx context.Context, outcomes []Outcome) error
}
