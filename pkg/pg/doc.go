// Package pg wires PostgreSQL through pgx/v5: a retrying pool constructor,
// goose migrations from an fs.FS, a transaction helper, a health probe, and
// SQLSTATE helpers such as IsDuplicateKeyError.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
package pg
