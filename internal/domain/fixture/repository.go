package fixture

import (
	"context"
	"errors"
)

var (
	ErrSameTeam = errors.New("fixture home and away team are the same")
	// ErrActiveConflict is returned when another active fixture already holds the key.
	ErrActiveConflict = errors.New("active fixture already exists for date and teams")
	ErrNotFound       = errors.New("fixture not found")
	// ErrReferenced is returned when a team or event is removed while fixtures still point at it.
	ErrReferenced = errors.New("entity is still referenced by fixtures")
)

// Repository is the canonical fixture table.
type Repository interface {
	GetByID(ctx context.Context, id string) (Fixture, bool, error)
	FindActive(ctx context.Context, key Key) (Fixture, bool, error)
	ListActiveByTeams(ctx context.Context, teamIDs []string) ([]Fixture, error)
	// ListByTeam returns every fixture referencing teamID, soft-deleted ones included.
	ListByTeam(ctx context.Context, teamID string) ([]Fixture, error)
	CountActiveByTeams(ctx context.Context, teamIDs []string) (map[string]int, error)
	CountActiveByEvents(ctx context.Context, eventIDs []string) (map[string]int, error)
	// ExactDuplicates groups active fixtures sharing date, team pair and
	// scores in either orientation. Each group lists ids in ascending order.
	ExactDuplicates(ctx context.Context) ([][]string, error)

	Insert(ctx context.Context, f Fixture) error
	Update(ctx context.Context, f Fixture) error
	ReassignEvent(ctx context.Context, fromEventID, toEventID string) (int, error)
	SoftDelete(ctx context.Context, id, reason string) error
}
