package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	basecache "github.com/riskibarqy/soccer-registry/internal/platform/cache"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

type cachedTeam struct {
	value  team.Team
	exists bool
}

type cachedEntry struct {
	value  registry.Entry
	exists bool
}

// Store caches the lookups read-only surfaces repeat (dry runs, reports,
// audit queries). Transactions always see the underlying repositories, and
// every committed transaction purges both caches.
type Store struct {
	next     uow.Store
	teams    *basecache.Store[cachedTeam]
	registry *basecache.Store[cachedEntry]
	aliases  *basecache.Store[[]registry.Entry]
}

func NewStore(next uow.Store, ttl time.Duration) *Store {
	return &Store{
		next:     next,
		teams:    basecache.NewStore[cachedTeam](ttl),
		registry: basecache.NewStore[cachedEntry](ttl),
		aliases:  basecache.NewStore[[]registry.Entry](ttl),
	}
}

func (s *Store) Read() uow.Repositories {
	repos := s.next.Read()
	repos.Teams = &TeamRepository{Repository: repos.Teams, cache: s.teams}
	repos.Registry = &RegistryRepository{Repository: repos.Registry, entries: s.registry, aliases: s.aliases}
	return repos
}

func (s *Store) WithinTx(ctx context.Context, token writeauth.Token, fn func(ctx context.Context, repos uow.Repositories) error) error {
	if err := s.next.WithinTx(ctx, token, fn); err != nil {
		return err
	}
	s.Purge(ctx)
	return nil
}

func (s *Store) Purge(ctx context.Context) {
	s.teams.Purge(ctx)
	s.registry.Purge(ctx)
	s.aliases.Purge(ctx)
}

// TeamRepository caches GetByID; every other method passes through.
type TeamRepository struct {
	team.Repository
	cache *basecache.Store[cachedTeam]
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (team.Team, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, "team:id:"+id, func(ctx context.Context) (cachedTeam, error) {
		item, exists, err := r.Repository.GetByID(ctx, id)
		if err != nil {
			return cachedTeam{}, err
		}
		return cachedTeam{value: item, exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}
	out := v.value
	out.QualityFlags = append([]string(nil), out.QualityFlags...)
	return out, v.exists, nil
}

// RegistryRepository caches Get, FindBySourceID and FindByAliasKey.
type RegistryRepository struct {
	registry.Repository
	entries *basecache.Store[cachedEntry]
	aliases *basecache.Store[[]registry.Entry]
}

func (r *RegistryRepository) Get(ctx context.Context, entityType registry.EntityType, canonicalID string) (registry.Entry, bool, error) {
	return r.entry(ctx, "registry:id:"+string(entityType)+":"+canonicalID, func(ctx context.Context) (registry.Entry, bool, error) {
		return r.Repository.Get(ctx, entityType, canonicalID)
	})
}

func (r *RegistryRepository) FindBySourceID(ctx context.Context, entityType registry.EntityType, sourceID string) (registry.Entry, bool, error) {
	if sourceID == "" {
		return r.Repository.FindBySourceID(ctx, entityType, sourceID)
	}
	return r.entry(ctx, "registry:source:"+string(entityType)+":"+sourceID, func(ctx context.Context) (registry.Entry, bool, error) {
		return r.Repository.FindBySourceID(ctx, entityType, sourceID)
	})
}

func (r *RegistryRepository) FindByAliasKey(ctx context.Context, entityType registry.EntityType, aliasKey string) ([]registry.Entry, error) {
	if aliasKey == "" {
		return r.Repository.FindByAliasKey(ctx, entityType, aliasKey)
	}
	items, err := r.aliases.GetOrLoad(ctx, "registry:alias:"+string(entityType)+":"+aliasKey, func(ctx context.Context) ([]registry.Entry, error) {
		return r.Repository.FindByAliasKey(ctx, entityType, aliasKey)
	})
	if err != nil {
		return nil, err
	}
	out := make([]registry.Entry, 0, len(items))
	for _, item := range items {
		out = append(out, copyEntry(item))
	}
	return out, nil
}

func (r *RegistryRepository) entry(ctx context.Context, key string, load func(ctx context.Context) (registry.Entry, bool, error)) (registry.Entry, bool, error) {
	v, err := r.entries.GetOrLoad(ctx, key, func(ctx context.Context) (cachedEntry, error) {
		item, exists, err := load(ctx)
		if err != nil {
			return cachedEntry{}, err
		}
		return cachedEntry{value: item, exists: exists}, nil
	})
	if err != nil {
		return registry.Entry{}, false, err
	}
	return copyEntry(v.value), v.exists, nil
}

func copyEntry(e registry.Entry) registry.Entry {
	e.Aliases = append([]string(nil), e.Aliases...)
	e.AliasKeys = append([]string(nil), e.AliasKeys...)
	e.SourceIDs = append([]string(nil), e.SourceIDs...)
	return e
}
