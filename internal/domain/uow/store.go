package uow

import (
	"context"

	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/rawrecord"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

// Repositories is the set of repositories bound to one connection or transaction.
type Repositories struct {
	Teams      team.Repository
	Fixtures   fixture.Repository
	Events     event.Repository
	Registry   registry.Repository
	Audit      audit.Repository
	RawRecords rawrecord.Repository
}

// Store hands out repositories. Read returns repositories whose write methods
// fail with writeauth.ErrWriteNotAuthorized. WithinTx runs fn in a single
// transaction, committing when fn returns nil and rolling back otherwise.
// An invalid token is rejected before the transaction starts.
type Store interface {
	Read() Repositories
	WithinTx(ctx context.Context, token writeauth.Token, fn func(ctx context.Context, repos Repositories) error) error
}
