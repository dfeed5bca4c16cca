package usecase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultSampleSize = 10

// DedupService finds duplicate canonical rows. It never writes.
type DedupService struct {
	store      uow.Store
	thresholds dedup.Thresholds
	sampleSize int
	logger     *logging.Logger
}

func NewDedupService(store uow.Store, thresholds dedup.Thresholds, sampleSize int, logger *logging.Logger) *DedupService {
	if sampleSize <= 0 {
		sampleSize = defaultSampleSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DedupService{
		store:      store,
		thresholds: thresholds,
		sampleSize: sampleSize,
		logger:     logger.Named("dedup"),
	}
}

func (s *DedupService) Thresholds() dedup.Thresholds {
	return s.thresholds
}

// Detect runs one detector over the committed tables.
func (s *DedupService) Detect(ctx context.Context, entity dedup.EntityType, detector dedup.Detector) ([]dedup.Group, error) {
	return s.detectWith(ctx, s.store.Read(), entity, detector)
}

func (s *DedupService) detectWith(ctx context.Context, repos uow.Repositories, entity dedup.EntityType, detector dedup.Detector) ([]dedup.Group, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DedupService.Detect",
		attribute.String("dedup.entity", string(entity)),
		attribute.String("dedup.detector", string(detector)),
	)
	defer span.End()

	if _, err := dedup.ParseDetector(entity, string(detector)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	switch entity {
	case dedup.EntityTeam:
		switch detector {
		case dedup.DetectorExact:
			return s.teamExact(ctx, repos)
		case dedup.DetectorFuzzyAuto, dedup.DetectorFuzzyReview:
			groups, err := s.teamFuzzy(ctx, repos)
			if err != nil {
				return nil, err
			}
			return filterDetector(groups, detector), nil
		default:
			return s.teamSameName(ctx, repos)
		}
	case dedup.EntityFixture:
		return s.fixtureExact(ctx, repos)
	default:
		return s.eventExact(ctx, repos)
	}
}

// Report runs one detector and summarizes the result.
func (s *DedupService) Report(ctx context.Context, entity dedup.EntityType, detector dedup.Detector) (dedup.Report, error) {
	groups, err := s.Detect(ctx, entity, detector)
	if err != nil {
		return dedup.Report{}, err
	}
	return dedup.BuildReport(entity, detector, groups, s.sampleSize), nil
}

// ReportAll runs every detector of every entity type concurrently.
func (s *DedupService) ReportAll(ctx context.Context) ([]dedup.Report, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DedupService.ReportAll")
	defer span.End()

	type job struct {
		entity   dedup.EntityType
		detector dedup.Detector
	}
	var jobs []job
	for _, entity := range []dedup.EntityType{dedup.EntityTeam, dedup.EntityFixture, dedup.EntityEvent} {
		for _, detector := range dedup.DetectorsFor(entity) {
			jobs = append(jobs, job{entity: entity, detector: detector})
		}
	}

	reports := make([]dedup.Report, len(jobs))
	p := pool.New().WithMaxGoroutines(4).WithContext(ctx).WithCancelOnError()
	for i, j := range jobs {
		i, j := i, j
		p.Go(func(ctx context.Context) error {
			report, err := s.Report(ctx, j.entity, j.detector)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", j.entity, j.detector, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		markSpanError(span, err)
		return nil, err
	}
	return reports, nil
}

func (s *DedupService) teamExact(ctx context.Context, repos uow.Repositories) ([]dedup.Group, error) {
	keys, err := repos.Teams.ExactDuplicates(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect exact team duplicates: %w", err)
	}
	groups := make([]dedup.Group, 0, len(keys))
	for _, k := range keys {
		groupKey := k.NormalizedName + "|" + strconv.Itoa(intValue(k.BirthYear)) + "|" + string(k.Gender)
		groups = append(groups, dedup.NewGroup(dedup.EntityTeam, dedup.DetectorExact, groupKey, k.TeamIDs, 1))
	}
	return groups, nil
}

// teamFuzzy returns auto and review pairs: same birth year, same gender,
// different normalized names, similarity at or above the review threshold.
func (s *DedupService) teamFuzzy(ctx context.Context, repos uow.Repositories) ([]dedup.Group, error) {
	pairs, err := repos.Teams.SimilarPairs(ctx, team.PairQuery{MinSimilarity: s.thresholds.Review})
	if err != nil {
		return nil, fmt.Errorf("detect similar teams: %w", err)
	}

	groups := make([]dedup.Group, 0)
	for _, p := range pairs {
		if !team.SameBirthYear(p.A.BirthYear, p.B.BirthYear) || p.A.Gender != p.B.Gender {
			continue
		}
		if p.A.NormalizedName == p.B.NormalizedName {
			continue
		}
		var detector dedup.Detector
		switch s.thresholds.Classify(p.Similarity) {
		case dedup.BandAuto:
			detector = dedup.DetectorFuzzyAuto
		case dedup.BandReview:
			detector = dedup.DetectorFuzzyReview
		default:
			continue
		}
		groups = append(groups, dedup.NewGroup(dedup.EntityTeam, detector, dedup.PairKey(p.A.ID, p.B.ID), []string{p.A.ID, p.B.ID}, p.Similarity))
	}
	return groups, nil
}

// teamSameName catches rosters created twice because one feed lacked the
// birth year or gender: near-identical names, a birth year unset on at least
// one side, compatible gender and activity on at least one side. Pairs
// already found by the exact or fuzzy detectors are left to them. Two known
// birth years are two rosters, however close.
func (s *DedupService) teamSameName(ctx context.Context, repos uow.Repositories) ([]dedup.Group, error) {
	pairs, err := repos.Teams.SimilarPairs(ctx, team.PairQuery{MinSimilarity: s.thresholds.SameName})
	if err != nil {
		return nil, fmt.Errorf("detect same-name teams: %w", err)
	}

	covered := make(map[string]struct{})
	exact, err := s.teamExact(ctx, repos)
	if err != nil {
		return nil, err
	}
	fuzzy, err := s.teamFuzzy(ctx, repos)
	if err != nil {
		return nil, err
	}
	for _, g := range append(exact, fuzzy...) {
		for i := 0; i < len(g.MemberIDs); i++ {
			for j := i + 1; j < len(g.MemberIDs); j++ {
				covered[dedup.PairKey(g.MemberIDs[i], g.MemberIDs[j])] = struct{}{}
			}
		}
	}

	candidates := make([]team.SimilarPair, 0, len(pairs))
	ids := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		if _, ok := covered[dedup.PairKey(p.A.ID, p.B.ID)]; ok {
			continue
		}
		if !team.CompatibleGender(p.A.Gender, p.B.Gender) || (p.A.HasBirthYear() && p.B.HasBirthYear()) {
			continue
		}
		candidates = append(candidates, p)
		ids = append(ids, p.A.ID, p.B.ID)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	activity, err := repos.Fixtures.CountActiveByTeams(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count team activity: %w", err)
	}

	groups := make([]dedup.Group, 0, len(candidates))
	for _, p := range candidates {
		if activity[p.A.ID] == 0 && activity[p.B.ID] == 0 {
			continue
		}
		groups = append(groups, dedup.NewGroup(dedup.EntityTeam, dedup.DetectorSameName, dedup.PairKey(p.A.ID, p.B.ID), []string{p.A.ID, p.B.ID}, p.Similarity))
	}
	return groups, nil
}

func (s *DedupService) fixtureExact(ctx context.Context, repos uow.Repositories) ([]dedup.Group, error) {
	sets, err := repos.Fixtures.ExactDuplicates(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect exact fixture duplicates: %w", err)
	}
	groups := make([]dedup.Group, 0, len(sets))
	for _, ids := range sets {
		first, ok, err := repos.Fixtures.GetByID(ctx, ids[0])
		if err != nil {
			return nil, fmt.Errorf("load fixture %s: %w", ids[0], err)
		}
		key := ids[0]
		if ok {
			key = fixture.CanonicalResultKey(first)
		}
		groups = append(groups, dedup.NewGroup(dedup.EntityFixture, dedup.DetectorExact, key, ids, 1))
	}
	return groups, nil
}

func (s *DedupService) eventExact(ctx context.Context, repos uow.Repositories) ([]dedup.Group, error) {
	dups, err := repos.Events.ExactDuplicates(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect exact event duplicates: %w", err)
	}
	groups := make([]dedup.Group, 0, len(dups))
	for _, d := range dups {
		groups = append(groups, dedup.NewGroup(dedup.EntityEvent, dedup.DetectorExact, string(d.Kind)+"|"+d.NameKey, d.EventIDs, 1))
	}
	return groups, nil
}

func filterDetector(groups []dedup.Group, detector dedup.Detector) []dedup.Group {
	out := make([]dedup.Group, 0, len(groups))
	for _, g := range groups {
		if g.Detector == detector {
			out = append(out, g)
		}
	}
	return out
}
