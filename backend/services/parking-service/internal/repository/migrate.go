package repository

import (
	"context"
	"database/sql"
	_ "embed"

	libdb "parkpay/backend/libs/db"
)

//go:embed schema.sql
var schema string

// Migrate creates the parking tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	return libdb.ApplySchema(ctx, db, schema)
}
