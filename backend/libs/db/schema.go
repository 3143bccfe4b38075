package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// ApplySchema runs the semicolon separated statements of schema in one transaction.
// Statements must be idempotent (CREATE ... IF NOT EXISTS).
func ApplySchema(ctx context.Context, db *sql.DB, schema string) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range strings.Split(schema, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("db: apply schema: %w", err)
			}
		}
		return nil
	})
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
