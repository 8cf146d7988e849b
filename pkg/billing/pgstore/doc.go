// Package pgstore persists billing state in PostgreSQL through pgx.
//
// The schema ships with the package as goose migrations:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
//	svc := billing.NewService(billingCfg, provider, pgstore.New(pool))
//
// Unique violations on customers and events surface as billing.ErrCustomerExists
// and billing.ErrEventExists, which the service relies on to resolve races
// between concurrent requests and duplicate webhook deliveries.
package pgstore
