package audit

import (
	"context"
	"errors"
	"time"
)

type Action string

const (
	ActionMergeDelete Action = "merge_delete"
	ActionSoftDelete  Action = "soft_delete"
)

const (
	ReasonMostActivity    = "most_activity"
	ReasonEarliestCreated = "earliest_created"
	ReasonSmallestID      = "smallest_id"
)

var ErrMissingSnapshot = errors.New("audit record requires a before snapshot")

// Record is one immutable entry describing a destructive change.
type Record struct {
	ID         string
	EntityType string
	EntityID   string
	Action     Action
	Reason     string
	Before     []byte
	After      []byte
	Actor      string
	RunID      string
	CreatedAt  time.Time
}

func (r Record) Validate() error {
	if len(r.Before) == 0 || string(r.Before) == "null" {
		return ErrMissingSnapshot
	}
	if r.EntityID == "" || r.EntityType == "" {
		return errors.New("audit record entity is required")
	}
	return nil
}

type Repository interface {
	Append(ctx context.Context, r Record) error
	ListByEntity(ctx context.Context, entityID string) ([]Record, error)
	ListByRun(ctx context.Context, runID string) ([]Record, error)
}
