package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/rawrecord"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

// Store keeps every table in process memory. Transactions run one at a time
// against a private copy of the tables that replaces the committed copy only
// when the callback succeeds.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *tables
	now  func() time.Time
}

type tables struct {
	teams         map[string]team.Team
	ratingHistory map[string]int
	fixtures      map[string]fixture.Fixture
	events        map[string]event.Event
	registry      map[registryKey]registry.Entry
	audit         []audit.Record
	raw           []rawrecord.Record
	rawSeq        int64
}

type registryKey struct {
	entityType  registry.EntityType
	canonicalID string
}

func NewStore() *Store {
	return &Store{data: newTables(), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func newTables() *tables {
	return &tables{
		teams:         make(map[string]team.Team),
		ratingHistory: make(map[string]int),
		fixtures:      make(map[string]fixture.Fixture),
		events:        make(map[string]event.Event),
		registry:      make(map[registryKey]registry.Entry),
	}
}

func (t *tables) clone() *tables {
	out := newTables()
	for k, v := range t.teams {
		v.QualityFlags = append([]string(nil), v.QualityFlags...)
		out.teams[k] = v
	}
	for k, v := range t.ratingHistory {
		out.ratingHistory[k] = v
	}
	for k, v := range t.fixtures {
		out.fixtures[k] = v
	}
	for k, v := range t.events {
		out.events[k] = v
	}
	for k, v := range t.registry {
		v.Aliases = append([]string(nil), v.Aliases...)
		v.AliasKeys = append([]string(nil), v.AliasKeys...)
		v.SourceIDs = append([]string(nil), v.SourceIDs...)
		out.registry[k] = v
	}
	out.audit = append([]audit.Record(nil), t.audit...)
	out.raw = append([]rawrecord.Record(nil), t.raw...)
	out.rawSeq = t.rawSeq
	return out
}

// Read returns repositories over the committed tables. Writes through them
// fail with writeauth.ErrWriteNotAuthorized, except raw record appends which
// belong to collectors.
func (s *Store) Read() uow.Repositories {
	return s.repositories(&view{store: s})
}

func (s *Store) WithinTx(ctx context.Context, token writeauth.Token, fn func(ctx context.Context, repos uow.Repositories) error) error {
	if err := writeauth.Require(token); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.data.clone()
	s.mu.RUnlock()

	v := &view{store: s, tx: working, token: token}
	if err := fn(ctx, s.repositories(v)); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = working
	s.mu.Unlock()
	return nil
}

// SeedRatingHistory records n history rows for a team, mirroring the
// team_rating_history table the merge clears.
func (s *Store) SeedRatingHistory(teamID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ratingHistory[teamID] += n
}

// RatingHistoryCount reports the committed history rows for a team.
func (s *Store) RatingHistoryCount(teamID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ratingHistory[teamID]
}

func (s *Store) repositories(v *view) uow.Repositories {
	return uow.Repositories{
		Teams:      &TeamRepository{v: v},
		Fixtures:   &FixtureRepository{v: v},
		Events:     &EventRepository{v: v},
		Registry:   &RegistryRepository{v: v},
		Audit:      &AuditRepository{v: v},
		RawRecords: &RawRecordRepository{v: v},
	}
}

// view binds repositories either to the committed tables (tx == nil) or to
// the working copy of a running transaction.
type view struct {
	store *Store
	tx    *tables
	token writeauth.Token
}

func (v *view) read(fn func(t *tables)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	fn(v.store.data)
}

func (v *view) write(fn func(t *tables) error) error {
	if v.tx == nil || !v.token.Valid() {
		return writeauth.ErrWriteNotAuthorized
	}
	return fn(v.tx)
}

func (v *view) now() time.Time {
	return v.store.now()
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s not found", kind, id)
}
