// Package pg bootstraps the PostgreSQL layer for the task queue: a pgx/v5
// connection pool, goose schema migrations and a health check, plus error
// classification helpers for the SQLSTATE codes the queue cares about.
//
// Connect retries with a growing delay so restarting nodes tolerate a
// database that is still starting up. Migrate runs goose against the same
// pool through pgx's database/sql adapter, so the schema is current before
// any worker claims a task.
//
// Usage:
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		log.Fatal(err)
//	}
//
// All tuning knobs come from environment variables; see the field tags on
// Config for names and defaults.
package pg
