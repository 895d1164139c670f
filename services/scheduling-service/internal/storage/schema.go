package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/greygj/Calendrax1.3-sub000/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the idempotent schema on startup.
func EnsureSchema(ctx context.Context, pool *db.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
