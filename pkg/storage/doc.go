// Package storage holds the persistence plumbing shared by the domain
// packages: backend configuration and the PostgreSQL schema.
//
// The schema lives in schema.sql and is embedded into the binary. Migrate
// applies it idempotently, so it is safe to call on every start:
//
//	db, err := sql.Open("postgres", cfg.PostgresURL)
//	if err != nil {
//		return err
//	}
//	if err := storage.Migrate(ctx, db); err != nil {
//		return err
//	}
//
// Connection pooling, read replicas, Redis and S3 clients live in the
// storage/postgres subpackage.
//
// # Tables
//
//   - users, api_tokens: identities and hashed bearer tokens
//   - subscription_plans: plan catalog, seeded by laman-admin
//   - user_subscriptions: one row per subscription period chain, usage counter
//   - generated_pages: prompts and their generated HTML/CSS
package storage
