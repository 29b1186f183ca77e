// Package boiledrepos implements the repositories on top of the sqlboiler query runtime.
package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/friendsofgo/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/darasa/core"
)

const uniqueViolation = "23505"

var dialect = drivers.Dialect{
	LQ:                   0x22,
	RQ:                   0x22,
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// newQuery builds a postgres query from the query mods.
func newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}

func quote(ident string) string {
	return strmangle.IdentQuote(dialect.LQ, dialect.RQ, ident)
}

func quoteAll(idents []string) string {
	return strings.Join(strmangle.IdentQuoteSlice(dialect.LQ, dialect.RQ, idents), ",")
}

// selectCols returns the qualified column list of `table`.
func selectCols(table string, cols []string) qm.QueryMod {
	qualified := make([]string, 0, len(cols))
	for _, c := range cols {
		qualified = append(qualified, quote(table)+"."+quote(c))
	}
	return qm.Select(qualified...)
}

func insertQuery(table string, cols []string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quote(table), quoteAll(cols), strmangle.Placeholders(dialect.UseIndexPlaceholders, len(cols), 1, 1),
	)
}

func updateQuery(table string, cols []string, pkCols []string) string {
	return fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		quote(table),
		strmangle.SetParamNames(string(dialect.LQ), string(dialect.RQ), 1, cols),
		strmangle.WhereClause(string(dialect.LQ), string(dialect.RQ), len(cols)+1, pkCols),
	)
}

func insert(ctx context.Context, exec boil.ContextExecutor, table string, cols []string, vals ...interface{}) error {
	_, err := queries.Raw(insertQuery(table, cols), vals...).ExecContext(ctx, exec)
	return err
}

func deleteByID(ctx context.Context, exec boil.ContextExecutor, table, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quote(table), strmangle.WhereClause(string(dialect.LQ), string(dialect.RQ), 1, []string{"id"}))
	if _, err := queries.Raw(query, id).ExecContext(ctx, exec); err != nil {
		return errors.Wrapf(err, "boiledrepos: unable to delete from %s", table)
	}
	return nil
}

// exists runs `SELECT EXISTS (...)` over the query mods.
func exists(ctx context.Context, exec boil.ContextExecutor, mods ...qm.QueryMod) (bool, error) {
	q := newQuery(mods...)
	queries.SetSelect(q, nil)
	queries.SetCount(q)
	queries.SetLimit(q, 1)

	var count int64
	if err := q.QueryRowContext(ctx, exec).Scan(&count); err != nil {
		return false, errors.Wrap(err, "boiledrepos: failed to check if row exists")
	}
	return count > 0, nil
}

// isUniqueViolation reports whether err is a postgres unique_violation, optionally on `constraint`.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	if len(constraint) > 0 {
		return pqErr.Constraint == constraint[0]
	}
	return true
}

func isNoRows(err error) bool {
	return errors.Cause(err) == sql.ErrNoRows
}

// validID tells whether `id` can be looked up at all; postgres rejects malformed uuids.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string { return uuid.New().String() }

func fieldSet(fields []string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// orderBy turns the orderings into an ORDER BY clause over the allowed fields, or `fallback` when none apply.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) qm.QueryMod {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !allowed[ord.Field] {
			continue
		}
		clauses = append(clauses, core.DBOrdering{Field: quote(ord.Field), Ascending: ord.Ascending}.String())
	}
	if len(clauses) == 0 {
		return qm.OrderBy(fallback)
	}
	return qm.OrderBy(strings.Join(clauses, ", "))
}
