package migrate

import (
	"context"
	"fmt"

	"github.com/delicado-shop/delicado-api/pkg/config"
	"github.com/delicado-shop/delicado-api/pkg/db"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

// MaybeRunDev brings the schema up to date in dev when DELICADO_AUTO_MIGRATE is
// set. The SQL migrations target Postgres, so sqlite databases get the embedded
// sqlite schema instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if cfg.DB.Driver == config.DBDriverSQLite {
		logg.Info(ctx, "migrate.sqlite.start")
		if err := ApplySQLiteSchema(ctx, client.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "migrate.sqlite.done")
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	dialect, err := DialectFor(cfg.DB.Driver)
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "dir", DefaultDir), "migrate.goose.start")
	if err := Run(ctx, sqlDB, dialect, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "migrate.goose.done")
	return nil
}
