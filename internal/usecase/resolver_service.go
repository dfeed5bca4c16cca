package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/platform/id"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
)

// MatchTier names the resolver step that produced a canonical id.
type MatchTier string

const (
	TierSourceID         MatchTier = "source_id"
	TierExactAttributes  MatchTier = "exact_attributes"
	TierRegistryAlias    MatchTier = "registry_alias"
	TierUnknownBirthYear MatchTier = "unknown_birth_year"
	TierCreated          MatchTier = "created"
)

const (
	QualityFlagMissingBirthYear = "missing_birth_year"
	QualityFlagMissingGender    = "missing_gender"
	// QualityFlagMatchedWithoutBirthYear marks a team without a birth year that
	// absorbed a record carrying one.
	QualityFlagMatchedWithoutBirthYear = "matched_without_birth_year"
)

// TeamInput is a team reference as a feed delivered it.
type TeamInput struct {
	Name            string
	BirthYear       *int
	AgeGroup        string
	Season          string
	SeasonStartYear int
	Gender          string
	SourcePlatform  string
	SourceID        string
	Location        string
	Region          string
}

type EventInput struct {
	Name           string
	Kind           string
	SourcePlatform string
	SourceEventID  string
	StartDate      *time.Time
	EndDate        *time.Time
}

type Resolution struct {
	ID      string
	Tier    MatchTier
	Created bool
}

// Scope binds resolution to one set of repositories. In dry run nothing is
// written: ids for entities that would be created are provisional but stable
// within the scope, and fixtures that would be written are remembered so later
// records in the scope see them.
type Scope struct {
	repos  uow.Repositories
	dryRun bool

	mu          sync.Mutex
	provisional map[string]string
	planned     map[string]fixture.Fixture
}

func NewScope(repos uow.Repositories, dryRun bool) *Scope {
	return &Scope{
		repos:       repos,
		dryRun:      dryRun,
		provisional: make(map[string]string),
		planned:     make(map[string]fixture.Fixture),
	}
}

func (s *Scope) Repos() uow.Repositories { return s.repos }

func (s *Scope) DryRun() bool { return s.dryRun }

func (s *Scope) provisionalID(key string, newID func() (string, error)) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.provisional[key]; ok {
		return id, false, nil
	}
	id, err := newID()
	if err != nil {
		return "", false, err
	}
	s.provisional[key] = id
	return id, true, nil
}

// planFixture remembers the state a dry run would have written for f's key.
func (s *Scope) planFixture(f fixture.Fixture) {
	if !s.dryRun {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planned[f.Key().String()] = f
}

func (s *Scope) plannedFixture(key fixture.Key) (fixture.Fixture, bool) {
	if !s.dryRun {
		return fixture.Fixture{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.planned[key.String()]
	return f, ok
}

// teamCandidate is a TeamInput after normalization.
type teamCandidate struct {
	name       string
	display    string
	normalized string
	birthYear  *int
	gender     team.Gender
	region     string
	sourceKey  string
}

// teamMatcher is one resolver tier. A miss is ("", false, nil).
type teamMatcher interface {
	tier() MatchTier
	match(ctx context.Context, repos uow.Repositories, c teamCandidate) (string, bool, error)
}

type ResolverService struct {
	ids             id.Generator
	now             func() time.Time
	logger          *logging.Logger
	seasonStartYear int
	matchers        []teamMatcher
}

func NewResolverService(ids id.Generator, seasonStartYear int, logger *logging.Logger) *ResolverService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ResolverService{
		ids:             ids,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logger.Named("resolver"),
		seasonStartYear: seasonStartYear,
		matchers: []teamMatcher{
			sourceIDMatcher{},
			exactAttributesMatcher{},
			registryAliasMatcher{},
			unknownBirthYearMatcher{},
		},
	}
}

// WithClock overrides the clock used for created timestamps.
func (s *ResolverService) WithClock(now func() time.Time) *ResolverService {
	if now != nil {
		s.now = now
	}
	return s
}

// ResolveTeam maps a noisy team reference to a canonical team id, creating
// the team when no tier matches. The resolved id is recorded in the registry.
func (s *ResolverService) ResolveTeam(ctx context.Context, scope *Scope, in TeamInput) (Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResolverService.ResolveTeam")
	defer span.End()

	c, err := s.teamCandidate(in)
	if err != nil {
		return Resolution{}, err
	}

	repos := scope.Repos()
	for _, m := range s.matchers {
		teamID, ok, err := m.match(ctx, repos, c)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolve team %q via %s: %w", c.display, m.tier(), err)
		}
		if !ok {
			continue
		}
		if err := s.recordTeamAlias(ctx, scope, teamID, c); err != nil {
			return Resolution{}, err
		}
		if m.tier() == TierUnknownBirthYear && c.birthYear != nil && !scope.DryRun() {
			if err := repos.Teams.AddQualityFlags(ctx, teamID, []string{QualityFlagMatchedWithoutBirthYear}); err != nil {
				return Resolution{}, fmt.Errorf("flag team %s: %w", teamID, err)
			}
		}
		return Resolution{ID: teamID, Tier: m.tier()}, nil
	}

	return s.createTeam(ctx, scope, c)
}

func (s *ResolverService) createTeam(ctx context.Context, scope *Scope, c teamCandidate) (Resolution, error) {
	if scope.DryRun() {
		key := "team|" + team.IdentityKey{NormalizedName: c.normalized, BirthYear: intValue(c.birthYear), Gender: c.gender, Region: c.region}.String()
		teamID, created, err := scope.provisionalID(key, s.ids.NewID)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{ID: teamID, Tier: TierCreated, Created: created}, nil
	}

	teamID, err := s.ids.NewID()
	if err != nil {
		return Resolution{}, err
	}
	now := s.now()
	item := team.Team{
		ID:             teamID,
		Name:           c.name,
		DisplayName:    c.display,
		NormalizedName: c.normalized,
		BirthYear:      c.birthYear,
		Gender:         c.gender,
		Region:         c.region,
		QualityFlags:   qualityFlags(c),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, created, err := scope.Repos().Teams.Create(ctx, item)
	if err != nil {
		return Resolution{}, fmt.Errorf("create team %q: %w", c.display, err)
	}
	if !created {
		// Another writer took the identity key first; use its row.
		s.logger.DebugContext(ctx, "team identity already taken", "team_id", stored.ID, "name", c.display)
	}
	if err := s.recordTeamAlias(ctx, scope, stored.ID, c); err != nil {
		return Resolution{}, err
	}

	tier := TierCreated
	if !created {
		tier = TierExactAttributes
	}
	return Resolution{ID: stored.ID, Tier: tier, Created: created}, nil
}

func (s *ResolverService) recordTeamAlias(ctx context.Context, scope *Scope, teamID string, c teamCandidate) error {
	if scope.DryRun() {
		return nil
	}
	incoming := registry.Entry{
		EntityType:  registry.EntityTeam,
		CanonicalID: teamID,
		Aliases:     []string{c.display},
		SourceIDs:   nonEmpty(c.sourceKey),
	}
	return appendRegistry(ctx, scope.Repos().Registry, incoming)
}

func (s *ResolverService) teamCandidate(in TeamInput) (teamCandidate, error) {
	display := team.DisplayName(in.Name)
	normalized := team.NormalizeName(in.Name)
	if !team.IsUsableName(normalized) {
		return teamCandidate{}, fmt.Errorf("%w: team name %q", ErrUnresolvable, in.Name)
	}

	c := teamCandidate{
		name:       strings.TrimSpace(in.Name),
		display:    display,
		normalized: normalized,
		birthYear:  s.birthYear(in),
		gender:     team.ParseGender(in.Gender),
		sourceKey:  registry.SourceKey(in.SourcePlatform, in.SourceID),
	}
	if c.gender == team.GenderUnknown {
		c.gender = team.ParseGender(in.AgeGroup)
	}

	c.region = team.NormalizeRegion(in.Region)
	if c.region == "" {
		c.region = team.RegionFromLocation(in.Location)
	}
	if c.region == "" {
		c.region = team.InferRegion(in.Name)
	}
	return c, nil
}

// birthYear prefers an explicit year, then the age group against the season,
// then a four-digit year in the name ("2012B").
func (s *ResolverService) birthYear(in TeamInput) *int {
	if in.BirthYear != nil && team.ValidBirthYear(*in.BirthYear) {
		year := *in.BirthYear
		return &year
	}
	if age, ok := team.ParseAgeGroup(in.AgeGroup); ok {
		if season := s.seasonFor(in); season > 0 {
			year := team.BirthYearFromAgeGroup(age, season)
			return &year
		}
	}
	if year, ok := team.ParseBirthYear(in.AgeGroup); ok {
		return &year
	}
	if year, ok := team.ParseBirthYear(in.Name); ok {
		return &year
	}
	return nil
}

func (s *ResolverService) seasonFor(in TeamInput) int {
	if in.SeasonStartYear > 0 {
		return in.SeasonStartYear
	}
	if year, ok := team.SeasonStartYear(in.Season); ok {
		return year
	}
	return s.seasonStartYear
}

// ResolveEvent maps an event reference by source id, then by registry alias
// of its name within the same kind, and creates it otherwise.
func (s *ResolverService) ResolveEvent(ctx context.Context, scope *Scope, in EventInput) (Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResolverService.ResolveEvent")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	sourceID := strings.TrimSpace(in.SourceEventID)
	platform := strings.ToLower(strings.TrimSpace(in.SourcePlatform))
	if name == "" && sourceID == "" {
		return Resolution{}, fmt.Errorf("%w: event has neither name nor source id", ErrUnresolvable)
	}
	kind, err := event.ParseKind(in.Kind)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	repos := scope.Repos()
	incoming := registry.Entry{
		EntityType: registry.EntityEvent,
		Aliases:    nonEmpty(name),
		SourceIDs:  nonEmpty(registry.SourceKey(platform, sourceID)),
	}

	if sourceID != "" {
		existing, ok, err := repos.Events.FindBySource(ctx, platform, sourceID)
		if err != nil {
			return Resolution{}, fmt.Errorf("find event by source: %w", err)
		}
		if ok {
			return s.recordEvent(ctx, scope, existing.ID, incoming, TierSourceID)
		}
	}

	if key := registry.AliasKey(name); key != "" {
		entries, err := repos.Registry.FindByAliasKey(ctx, registry.EntityEvent, key)
		if err != nil {
			return Resolution{}, fmt.Errorf("find event alias: %w", err)
		}
		events, err := repos.Events.ListByIDs(ctx, registry.SortedIDs(entries))
		if err != nil {
			return Resolution{}, fmt.Errorf("list aliased events: %w", err)
		}
		for _, item := range events {
			if item.Kind == kind {
				return s.recordEvent(ctx, scope, item.ID, incoming, TierRegistryAlias)
			}
		}
	}

	if name == "" {
		return Resolution{}, fmt.Errorf("%w: unknown event source id %q has no name", ErrUnresolvable, sourceID)
	}

	if scope.DryRun() {
		eventID, created, err := scope.provisionalID("event|"+platform+"|"+sourceID+"|"+string(kind)+"|"+event.NameKey(name), s.ids.NewID)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{ID: eventID, Tier: TierCreated, Created: created}, nil
	}

	eventID, err := s.ids.NewID()
	if err != nil {
		return Resolution{}, err
	}
	stored, created, err := repos.Events.Create(ctx, event.Event{
		ID:             eventID,
		Name:           name,
		Kind:           kind,
		SourcePlatform: platform,
		SourceEventID:  sourceID,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("create event %q: %w", name, err)
	}
	res, err := s.recordEvent(ctx, scope, stored.ID, incoming, TierCreated)
	res.Created = created
	return res, err
}

func (s *ResolverService) recordEvent(ctx context.Context, scope *Scope, eventID string, incoming registry.Entry, tier MatchTier) (Resolution, error) {
	if !scope.DryRun() {
		incoming.CanonicalID = eventID
		if err := appendRegistry(ctx, scope.Repos().Registry, incoming); err != nil {
			return Resolution{}, err
		}
	}
	return Resolution{ID: eventID, Tier: tier}, nil
}

// appendRegistry skips the write when the entry already holds everything.
func appendRegistry(ctx context.Context, repo registry.Repository, incoming registry.Entry) error {
	existing, ok, err := repo.Get(ctx, incoming.EntityType, incoming.CanonicalID)
	if err != nil {
		return fmt.Errorf("get registry entry: %w", err)
	}
	if ok && existing.Contains(incoming) {
		return nil
	}
	if _, err := repo.Append(ctx, incoming); err != nil {
		return fmt.Errorf("append registry entry %s: %w", incoming.CanonicalID, err)
	}
	return nil
}

type sourceIDMatcher struct{}

func (sourceIDMatcher) tier() MatchTier { return TierSourceID }

func (sourceIDMatcher) match(ctx context.Context, repos uow.Repositories, c teamCandidate) (string, bool, error) {
	if c.sourceKey == "" {
		return "", false, nil
	}
	entry, ok, err := repos.Registry.FindBySourceID(ctx, registry.EntityTeam, c.sourceKey)
	if err != nil || !ok {
		return "", false, err
	}
	_, exists, err := repos.Teams.GetByID(ctx, entry.CanonicalID)
	if err != nil || !exists {
		return "", false, err
	}
	return entry.CanonicalID, true, nil
}

type exactAttributesMatcher struct{}

func (exactAttributesMatcher) tier() MatchTier { return TierExactAttributes }

func (exactAttributesMatcher) match(ctx context.Context, repos uow.Repositories, c teamCandidate) (string, bool, error) {
	teams, err := repos.Teams.FindByAttributes(ctx, c.normalized, c.birthYear, c.gender)
	if err != nil || len(teams) == 0 {
		return "", false, err
	}
	return pickByRegion(teams, c.region).ID, true, nil
}

// registryAliasMatcher recognizes spellings learned from earlier sightings
// and merges. Candidates must not contradict gender or birth year.
type registryAliasMatcher struct{}

func (registryAliasMatcher) tier() MatchTier { return TierRegistryAlias }

func (registryAliasMatcher) match(ctx context.Context, repos uow.Repositories, c teamCandidate) (string, bool, error) {
	entries, err := repos.Registry.FindByAliasKey(ctx, registry.EntityTeam, c.normalized)
	if err != nil || len(entries) == 0 {
		return "", false, err
	}
	teams, err := repos.Teams.ListByIDs(ctx, registry.SortedIDs(entries))
	if err != nil {
		return "", false, err
	}

	compatible := make([]team.Team, 0, len(teams))
	for _, item := range teams {
		if item.Gender != c.gender && item.Gender != team.GenderUnknown && c.gender != team.GenderUnknown {
			continue
		}
		if item.HasBirthYear() && c.birthYear != nil && *item.BirthYear != *c.birthYear {
			continue
		}
		compatible = append(compatible, item)
	}
	if len(compatible) == 0 {
		return "", false, nil
	}
	return pickByRegion(compatible, c.region).ID, true, nil
}

type unknownBirthYearMatcher struct{}

func (unknownBirthYearMatcher) tier() MatchTier { return TierUnknownBirthYear }

func (unknownBirthYearMatcher) match(ctx context.Context, repos uow.Repositories, c teamCandidate) (string, bool, error) {
	teams, err := repos.Teams.FindWithUnknownBirthYear(ctx, c.normalized)
	if err != nil {
		return "", false, err
	}
	compatible := make([]team.Team, 0, len(teams))
	for _, item := range teams {
		if team.CompatibleGender(item.Gender, c.gender) {
			compatible = append(compatible, item)
		}
	}
	if len(compatible) == 0 {
		return "", false, nil
	}
	return pickByRegion(compatible, c.region).ID, true, nil
}

// pickByRegion prefers a team in the candidate's region, then the first by id.
func pickByRegion(teams []team.Team, region string) team.Team {
	if region != "" {
		for _, item := range teams {
			if item.Region == region {
				return item
			}
		}
	}
	return teams[0]
}

func qualityFlags(c teamCandidate) []string {
	var flags []string
	if c.birthYear == nil {
		flags = append(flags, QualityFlagMissingBirthYear)
	}
	if c.gender == team.GenderUnknown {
		flags = append(flags, QualityFlagMissingGender)
	}
	return flags
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
