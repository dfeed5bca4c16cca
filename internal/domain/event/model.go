package event

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindLeague     Kind = "league"
	KindTournament Kind = "tournament"
)

// Event is a league or tournament fixtures can belong to.
type Event struct {
	ID             string
	Name           string
	Kind           Kind
	SourcePlatform string
	SourceEventID  string
	StartDate      *time.Time
	EndDate        *time.Time
	CreatedAt      time.Time
}

func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("event name is required")
	}
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	return nil
}

// ParseKind accepts the feed spellings of an event kind. Empty means league.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "league":
		return KindLeague, nil
	case "tournament", "cup", "showcase":
		return KindTournament, nil
	default:
		return "", fmt.Errorf("unknown event kind %q", value)
	}
}

// NameKey is the duplicate-detection key for event names: trimmed and case-folded.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// DuplicateGroup is a set of events sharing kind and name key.
type DuplicateGroup struct {
	Kind     Kind
	NameKey  string
	EventIDs []string
}

type Repository interface {
	GetByID(ctx context.Context, id string) (Event, bool, error)
	ListByIDs(ctx context.Context, ids []string) ([]Event, error)
	FindBySource(ctx context.Context, platform, sourceEventID string) (Event, bool, error)
	ExactDuplicates(ctx context.Context) ([]DuplicateGroup, error)

	// Create inserts e or returns the row already holding its source id.
	Create(ctx context.Context, e Event) (out Event, created bool, err error)
	Delete(ctx context.Context, id string) error
}
