package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry each migration file adds itself to via init.
var Migrations = migrate.NewMigrations()

// BringUpToDate applies any unapplied migrations against db and reports what
// ran. Callers that bring up fresh databases (startup, test setup) go through
// here so the schema is always the registry's latest.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	log := logger.FromContext(ctx)

	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if group.IsZero() {
		log.Debug("database schema already up to date")
	} else {
		log.Info("applied migration group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	return group, nil
}
