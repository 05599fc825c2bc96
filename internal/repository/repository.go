package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// *pgxpool.Pool satisfies it; tests substitute mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// base resolves which querier a repository method runs on.
// Methods taking a database.TxQuerier run on the pool when it is nil.
type base struct {
	pool PoolInterface
}

func (b base) on(q database.TxQuerier) database.TxQuerier {
	if q != nil {
		return q
	}
	return b.pool
}

// whereBuilder collects AND-ed conditions and their positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

// arg registers v and returns its placeholder.
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
