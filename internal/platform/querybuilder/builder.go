// Package querybuilder renders the small set of Postgres statements the
// repositories issue. Placeholders are numbered ($1, $2, ...) in the order
// arguments are appended.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// sqlWriter accumulates statement text and its positional arguments.
type sqlWriter struct {
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) text(parts ...string) {
	for _, p := range parts {
		w.sb.WriteString(p)
	}
}

// bind appends v and writes its placeholder.
func (w *sqlWriter) bind(v any) {
	w.args = append(w.args, v)
	w.sb.WriteString("$")
	w.sb.WriteString(strconv.Itoa(len(w.args)))
}

// expr writes expr, binding each '?' to the next of exprArgs. Surplus '?'
// characters are written literally.
func (w *sqlWriter) expr(expr string, exprArgs []any) {
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && next < len(exprArgs) {
			w.bind(exprArgs[next])
			next++
			continue
		}
		w.sb.WriteByte(expr[i])
	}
}

func (w *sqlWriter) conditions(keyword string, conds []Condition) {
	if len(conds) == 0 {
		return
	}
	w.text(keyword)
	for i, c := range conds {
		if i > 0 {
			w.text(" AND ")
		}
		c.writeTo(w)
	}
}

func (w *sqlWriter) list(keyword string, parts []string) {
	if len(parts) == 0 {
		return
	}
	w.text(keyword, strings.Join(parts, ", "))
}

func (w *sqlWriter) suffix(s string) {
	if s == "" {
		return
	}
	w.text(" ")
	w.expr(s, nil)
}

func (w *sqlWriter) done() (string, []any, error) {
	return w.sb.String(), w.args, nil
}

// Condition is one predicate of a WHERE or HAVING clause. Conditions are
// joined with AND.
type Condition interface {
	writeTo(w *sqlWriter)
}

type conditionFunc func(w *sqlWriter)

func (f conditionFunc) writeTo(w *sqlWriter) { f(w) }

func Eq(column string, value any) Condition {
	return conditionFunc(func(w *sqlWriter) {
		w.text(column, " = ")
		w.bind(value)
	})
}

func Gt(column string, value any) Condition {
	return conditionFunc(func(w *sqlWriter) {
		w.text(column, " > ")
		w.bind(value)
	})
}

func IsNull(column string) Condition {
	return conditionFunc(func(w *sqlWriter) {
		w.text(column, " IS NULL")
	})
}

// InStrings renders column IN ($1, $2, ...). An empty list matches nothing.
func InStrings(column string, values []string) Condition {
	return conditionFunc(func(w *sqlWriter) {
		if len(values) == 0 {
			w.text("1=0")
			return
		}
		w.text(column, " IN (")
		for i, v := range values {
			if i > 0 {
				w.text(", ")
			}
			w.bind(v)
		}
		w.text(")")
	})
}

// Any renders column = ANY($n) with the values bound as one text[] argument.
func Any(column string, values []string) Condition {
	return conditionFunc(func(w *sqlWriter) {
		w.text(column, " = ANY(")
		w.bind(pq.StringArray(values))
		w.text(")")
	})
}

// ArrayContains matches rows whose array column holds value.
func ArrayContains(column string, value any) Condition {
	return conditionFunc(func(w *sqlWriter) {
		w.bind(value)
		w.text(" = ANY(", column, ")")
	})
}

// Expr is a raw predicate; each '?' binds the next argument.
func Expr(expr string, args ...any) Condition {
	return conditionFunc(func(w *sqlWriter) {
		w.expr(expr, args)
	})
}

type SelectBuilder struct {
	columns   []string
	table     string
	where     []Condition
	groupBy   []string
	having    []Condition
	orderBy   []string
	limit     int
	forUpdate bool
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) GroupBy(parts ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, parts...)
	return b
}

func (b *SelectBuilder) Having(conditions ...Condition) *SelectBuilder {
	b.having = append(b.having, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

// ForUpdate locks the selected rows for the rest of the transaction.
func (b *SelectBuilder) ForUpdate() *SelectBuilder {
	b.forUpdate = true
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var w sqlWriter
	w.text("SELECT ", strings.Join(b.columns, ", "), " FROM ", b.table)
	w.conditions(" WHERE ", b.where)
	w.list(" GROUP BY ", b.groupBy)
	w.conditions(" HAVING ", b.having)
	w.list(" ORDER BY ", b.orderBy)
	if b.limit > 0 {
		w.text(" LIMIT ", strconv.Itoa(b.limit))
	}
	if b.forUpdate {
		w.text(" FOR UPDATE")
	}
	return w.done()
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// Suffix appends ON CONFLICT or RETURNING text verbatim.
func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("insert table is required")
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("insert columns are required")
	case len(b.rows) == 0:
		return "", nil, fmt.Errorf("insert values are required")
	}

	var w sqlWriter
	w.args = make([]any, 0, len(b.rows)*len(b.columns))
	w.text("INSERT INTO ", b.table, " (", strings.Join(b.columns, ", "), ") VALUES ")
	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			w.text(", ")
		}
		w.text("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				w.text(", ")
			}
			w.bind(value)
		}
		w.text(")")
	}
	w.suffix(b.suffix)
	return w.done()
}

type assignment struct {
	column string
	expr   string
	args   []any
}

type UpdateBuilder struct {
	table  string
	sets   []assignment
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, expr: "?", args: []any{value}})
	return b
}

// SetExpr assigns a raw expression; each '?' binds the next argument.
func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, expr: expr, args: args})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("update %s requires a where clause", b.table)
	}

	var w sqlWriter
	w.text("UPDATE ", b.table, " SET ")
	for i, s := range b.sets {
		if i > 0 {
			w.text(", ")
		}
		w.text(s.column, " = ")
		w.expr(s.expr, s.args)
	}
	w.conditions(" WHERE ", b.where)
	w.suffix(b.suffix)
	return w.done()
}

type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete from %s requires a where clause", b.table)
	}

	var w sqlWriter
	w.text("DELETE FROM ", b.table)
	w.conditions(" WHERE ", b.where)
	return w.done()
}
