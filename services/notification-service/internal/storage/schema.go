package storage

import (
	"context"
	_ "embed"

	"github.com/greygj/Calendrax1.3-sub000/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the schema. Statements are idempotent so startup can
// run it unconditionally.
func EnsureSchema(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
