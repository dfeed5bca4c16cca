package dedup

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
)

type EntityType string

const (
	EntityTeam    EntityType = "team"
	EntityFixture EntityType = "fixture"
	EntityEvent   EntityType = "event"
)

func ParseEntityType(value string) (EntityType, error) {
	switch EntityType(strings.ToLower(strings.TrimSpace(value))) {
	case EntityTeam:
		return EntityTeam, nil
	case EntityFixture:
		return EntityFixture, nil
	case EntityEvent:
		return EntityEvent, nil
	default:
		return "", fmt.Errorf("unknown entity type %q", value)
	}
}

type Detector string

const (
	DetectorExact       Detector = "exact"
	DetectorFuzzyAuto   Detector = "fuzzy-auto"
	DetectorFuzzyReview Detector = "fuzzy-review"
	DetectorSameName    Detector = "same-name"
)

// DetectorsFor lists the detectors available for an entity type.
func DetectorsFor(entity EntityType) []Detector {
	if entity == EntityTeam {
		return []Detector{DetectorExact, DetectorFuzzyAuto, DetectorFuzzyReview, DetectorSameName}
	}
	return []Detector{DetectorExact}
}

func ParseDetector(entity EntityType, value string) (Detector, error) {
	for _, d := range DetectorsFor(entity) {
		if string(d) == strings.ToLower(strings.TrimSpace(value)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("detector %q is not available for %s", value, entity)
}

// Mergeable is false for detectors whose groups are only reported.
func (d Detector) Mergeable() bool {
	return d != DetectorFuzzyReview
}

type Band string

const (
	BandAuto   Band = "auto"
	BandReview Band = "review"
	BandIgnore Band = "ignore"
)

type Thresholds struct {
	AutoMerge float64
	Review    float64
	SameName  float64
}

var DefaultThresholds = Thresholds{AutoMerge: 0.95, Review: 0.85, SameName: 0.95}

func (t Thresholds) Validate() error {
	if t.Review <= 0 || t.Review > 1 || t.AutoMerge <= 0 || t.AutoMerge > 1 || t.SameName <= 0 || t.SameName > 1 {
		return fmt.Errorf("similarity thresholds must be in (0, 1]")
	}
	if t.Review > t.AutoMerge {
		return fmt.Errorf("review threshold %.2f exceeds auto-merge threshold %.2f", t.Review, t.AutoMerge)
	}
	return nil
}

// Classify bands a similarity score. Review covers [Review, AutoMerge).
func (t Thresholds) Classify(similarity float64) Band {
	switch {
	case similarity >= t.AutoMerge:
		return BandAuto
	case similarity >= t.Review:
		return BandReview
	default:
		return BandIgnore
	}
}

// Group is one detected duplicate set. MemberIDs are sorted ascending.
type Group struct {
	Entity     EntityType
	Detector   Detector
	Key        string
	MemberIDs  []string
	Similarity float64
}

func NewGroup(entity EntityType, detector Detector, key string, ids []string, similarity float64) Group {
	members := append([]string(nil), ids...)
	sort.Strings(members)
	return Group{Entity: entity, Detector: detector, Key: key, MemberIDs: members, Similarity: similarity}
}

// Excess is the number of rows the group would remove.
func (g Group) Excess() int {
	if len(g.MemberIDs) == 0 {
		return 0
	}
	return len(g.MemberIDs) - 1
}

// PairKey identifies an unordered pair of ids.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Candidate is a group member as seen by the kept-side policy.
type Candidate struct {
	ID        string
	Activity  int
	CreatedAt time.Time
}

// ChooseKept orders candidates by activity (desc), created time (asc) and id
// (asc) and returns the first as kept.
func ChooseKept(candidates []Candidate) (Candidate, []Candidate) {
	ordered := append([]Candidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Activity != b.Activity {
			return a.Activity > b.Activity
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if len(ordered) == 0 {
		return Candidate{}, nil
	}
	return ordered[0], ordered[1:]
}

// KeepReason explains why kept won over loser.
func KeepReason(kept, loser Candidate) string {
	switch {
	case kept.Activity > loser.Activity:
		return audit.ReasonMostActivity
	case kept.CreatedAt.Before(loser.CreatedAt):
		return audit.ReasonEarliestCreated
	default:
		return audit.ReasonSmallestID
	}
}

// Report summarizes the groups one detector found.
type Report struct {
	Entity     EntityType
	Detector   Detector
	GroupCount int
	ExcessRows int
	Samples    []Group
}

func BuildReport(entity EntityType, detector Detector, groups []Group, sampleSize int) Report {
	r := Report{Entity: entity, Detector: detector, GroupCount: len(groups)}
	for _, g := range groups {
		r.ExcessRows += g.Excess()
	}
	if sampleSize > len(groups) {
		sampleSize = len(groups)
	}
	if sampleSize > 0 {
		r.Samples = append([]Group(nil), groups[:sampleSize]...)
	}
	return r
}
