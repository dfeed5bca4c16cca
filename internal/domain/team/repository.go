package team

import "context"

// DuplicateKey is one exact-duplicate group: teams sharing normalized name,
// birth year and gender.
type DuplicateKey struct {
	NormalizedName string
	BirthYear      *int
	Gender         Gender
	TeamIDs        []string
}

// SimilarPair is a candidate pair from the trigram scan. A.ID < B.ID.
type SimilarPair struct {
	A          Team
	B          Team
	Similarity float64
}

// PairQuery bounds the trigram scan. Pairs always have compatible genders and
// birth years that are equal, within one year, or unset on either side.
type PairQuery struct {
	MinSimilarity float64
}

// Repository is the canonical team table. Write methods fail with
// writeauth.ErrWriteNotAuthorized outside an authorized transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (Team, bool, error)
	ListByIDs(ctx context.Context, ids []string) ([]Team, error)
	FindByAttributes(ctx context.Context, normalizedName string, birthYear *int, gender Gender) ([]Team, error)
	FindWithUnknownBirthYear(ctx context.Context, normalizedName string) ([]Team, error)
	ExactDuplicates(ctx context.Context) ([]DuplicateKey, error)
	SimilarPairs(ctx context.Context, q PairQuery) ([]SimilarPair, error)

	// Create inserts t, or returns the existing row when the identity key is
	// already taken (created reports which happened).
	Create(ctx context.Context, t Team) (out Team, created bool, err error)
	UpdateStats(ctx context.Context, id string, stats Stats) error
	AddQualityFlags(ctx context.Context, id string, flags []string) error
	// Delete removes dependent history rows and then the team row.
	Delete(ctx context.Context, id string) error
}
