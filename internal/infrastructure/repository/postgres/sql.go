package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	// Raised by the write_gate trigger when app.pipeline_write is not set.
	codeWriteGate = "P0403"
)

// querier is the part of *sqlx.DB and *sqlx.Tx the repositories use.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// conn binds a repository to a querier. writable is only true inside
// Store.WithinTx after the write token was mirrored into the transaction.
type conn struct {
	q        querier
	writable bool
}

func (c conn) requireWrite() error {
	if !c.writable {
		return writeauth.ErrWriteNotAuthorized
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == codeForeignKeyViolation
}

func isCheckViolation(err error) bool {
	return pqCode(err) == codeCheckViolation
}

// translateGate maps the trigger rejection back to the sentinel the memory
// store returns so callers see one error for both backends.
func translateGate(err error) error {
	if err == nil {
		return nil
	}
	if pqCode(err) == codeWriteGate {
		return writeauth.ErrWriteNotAuthorized
	}
	return err
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	out := v.Float64
	return &out
}

func nullString(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}

func rowsAffected(res sql.Result) int {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

func nonNilStrings(items []string) pq.StringArray {
	if items == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(items)
}
