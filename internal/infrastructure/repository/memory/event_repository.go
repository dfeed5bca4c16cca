package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
)

type EventRepository struct {
	v *view
}

func (r *EventRepository) GetByID(_ context.Context, id string) (event.Event, bool, error) {
	var (
		out    event.Event
		exists bool
	)
	r.v.read(func(t *tables) {
		out, exists = t.events[id]
	})
	return out, exists, nil
}

func (r *EventRepository) ListByIDs(_ context.Context, ids []string) ([]event.Event, error) {
	out := make([]event.Event, 0, len(ids))
	r.v.read(func(t *tables) {
		for _, id := range ids {
			if item, ok := t.events[id]; ok {
				out = append(out, item)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *EventRepository) FindBySource(_ context.Context, platform, sourceEventID string) (event.Event, bool, error) {
	var (
		out    event.Event
		exists bool
	)
	r.v.read(func(t *tables) {
		out, exists = findEventBySource(t, platform, sourceEventID)
	})
	return out, exists, nil
}

func (r *EventRepository) ExactDuplicates(_ context.Context) ([]event.DuplicateGroup, error) {
	type groupKey struct {
		kind event.Kind
		name string
	}

	buckets := make(map[groupKey][]string)
	var order []groupKey
	r.v.read(func(t *tables) {
		for _, id := range sortedKeys(t.events) {
			item := t.events[id]
			key := groupKey{kind: item.Kind, name: event.NameKey(item.Name)}
			if _, ok := buckets[key]; !ok {
				order = append(order, key)
			}
			buckets[key] = append(buckets[key], id)
		}
	})

	out := make([]event.DuplicateGroup, 0)
	for _, key := range order {
		if ids := buckets[key]; len(ids) > 1 {
			out = append(out, event.DuplicateGroup{Kind: key.kind, NameKey: key.name, EventIDs: ids})
		}
	}
	return out, nil
}

func (r *EventRepository) Create(_ context.Context, item event.Event) (event.Event, bool, error) {
	if err := item.Validate(); err != nil {
		return event.Event{}, false, err
	}

	var (
		out     event.Event
		created bool
	)
	err := r.v.write(func(t *tables) error {
		if item.SourceEventID != "" {
			if existing, ok := findEventBySource(t, item.SourcePlatform, item.SourceEventID); ok {
				out = existing
				return nil
			}
		}
		if _, ok := t.events[item.ID]; ok {
			return fmt.Errorf("create event %s: id already exists", item.ID)
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = r.v.now()
		}
		t.events[item.ID] = item
		out, created = item, true
		return nil
	})
	if err != nil {
		return event.Event{}, false, err
	}
	return out, created, nil
}

func (r *EventRepository) Delete(_ context.Context, id string) error {
	return r.v.write(func(t *tables) error {
		if _, ok := t.events[id]; !ok {
			return notFound("event", id)
		}
		for _, f := range t.fixtures {
			if f.EventID == id {
				return fmt.Errorf("delete event %s: %w", id, fixture.ErrReferenced)
			}
		}
		delete(t.events, id)
		return nil
	})
}

func findEventBySource(t *tables, platform, sourceEventID string) (event.Event, bool) {
	if sourceEventID == "" {
		return event.Event{}, false
	}
	for _, id := range sortedKeys(t.events) {
		item := t.events[id]
		if item.SourcePlatform == platform && item.SourceEventID == sourceEventID {
			return item, true
		}
	}
	return event.Event{}, false
}
