package store

import (
	"context"
	"embed"
	"log/slog"

	"github.com/pkg/errors"
)

//go:embed migration
var migrationFS embed.FS

const latestSchemaFile = "migration/postgres/LATEST.sql"

// Migrate brings the database schema up. A fresh database gets the full
// schema; an initialized one is left alone. The schema is idempotent, so
// re-running against a current database is safe.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "check schema state")
	}
	if initialized {
		return nil
	}

	schema, err := migrationFS.ReadFile(latestSchemaFile)
	if err != nil {
		return errors.Wrap(err, "read schema file")
	}
	slog.Info("applying database schema", slog.String("file", latestSchemaFile))
	if _, err := s.driver.GetDB().ExecContext(ctx, string(schema)); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}
