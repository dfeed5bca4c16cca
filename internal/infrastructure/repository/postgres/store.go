package postgres

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

// Store hands out repositories over one database pool. Canonical tables are
// guarded twice: repositories refuse writes outside WithinTx, and the
// write_gate trigger refuses rows written without app.pipeline_write.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Read() uow.Repositories {
	return s.repositories(conn{q: s.db})
}

func (s *Store) WithinTx(ctx context.Context, token writeauth.Token, fn func(ctx context.Context, repos uow.Repositories) error) error {
	if err := writeauth.Require(token); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Wrap(err, "begin pipeline tx")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// is_local=true scopes the settings to this transaction.
	if _, err := tx.ExecContext(ctx, `
SELECT set_config('app.pipeline_write', 'on', true),
       set_config('app.pipeline_actor', $1, true),
       set_config('app.pipeline_run', $2, true)`, token.Actor(), token.RunID()); err != nil {
		return crerr.Wrap(err, "mirror write token into tx")
	}

	if err := fn(ctx, s.repositories(conn{q: tx, writable: true})); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return crerr.Wrap(translateGate(err), "commit pipeline tx")
	}
	return nil
}

func (s *Store) repositories(c conn) uow.Repositories {
	return uow.Repositories{
		Teams:      &TeamRepository{c: c, now: s.now},
		Fixtures:   &FixtureRepository{c: c, now: s.now},
		Events:     &EventRepository{c: c, now: s.now},
		Registry:   &RegistryRepository{c: c, now: s.now},
		Audit:      &AuditRepository{c: c, now: s.now},
		RawRecords: &RawRecordRepository{c: c, now: s.now},
	}
}
