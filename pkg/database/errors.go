package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
	CodeLockNotAvailable    = "55P03"
	CodeDeadlockDetected    = "40P01"
)

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return sqlState(err) == CodeUniqueViolation
}

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	return sqlState(err) == CodeForeignKeyViolation
}

// IsCheckViolation reports whether err is a CHECK constraint violation.
func IsCheckViolation(err error) bool {
	return sqlState(err) == CodeCheckViolation
}

// IsLockTimeout reports whether err means a row lock could not be acquired in time.
// Deadlock victims are included since the caller can retry them the same way.
func IsLockTimeout(err error) bool {
	switch sqlState(err) {
	case CodeLockNotAvailable, CodeDeadlockDetected:
		return true
	}
	return false
}

// SetLockTimeout bounds how long statements in the current transaction wait for row locks.
// A zero or negative duration leaves the server default in place.
func SetLockTimeout(ctx context.Context, tx TxQuerier, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	var applied string
	err := tx.QueryRow(ctx, `SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", d.Milliseconds())).Scan(&applied)
	if err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	return nil
}
