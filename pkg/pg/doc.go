// Package pg connects to PostgreSQL through a pgx connection pool.
//
// Connect parses Config, opens the pool and pings it with bounded retries.
// OpenDB bridges the pool to database/sql so the notification store (sqlx)
// and its goose migrations share the same connections:
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	db := pg.OpenDB(pool)
//	if err := sqlstore.Migrate(ctx, db.DB, sqlstore.DialectPostgres, log); err != nil {
//		return err
//	}
//	store := sqlstore.New(db)
//
// Healthcheck plugs the pool into the readiness check.
package pg
