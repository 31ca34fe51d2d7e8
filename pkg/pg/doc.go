// Package pg bootstraps PostgreSQL access with pgx/v5: a retrying pool
// constructor, goose migrations from an embedded filesystem, a health check
// and error classification helpers.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations, cfg, log); err != nil {
//	    return err
//	}
//
// Configuration is read from PG_* environment variables; see the field tags
// on Config.
package pg
