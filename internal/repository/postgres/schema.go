package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates all tables and indexes if they do not exist.
// Table names are interpolated before the SQL is sent, so each
// environment prefix gets its own schema.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, stmt := range schemaStatements(tables) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

func schemaStatements(tables *TableNames) []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				username TEXT NOT NULL,
				full_name TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT 'teacher',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Users),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				author_id UUID NOT NULL,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				excerpt TEXT NOT NULL DEFAULT '',
				tags TEXT[] NOT NULL DEFAULT '{}',
				upvotes INT NOT NULL DEFAULT 0,
				views INT NOT NULL DEFAULT 0,
				comment_count INT NOT NULL DEFAULT 0,
				is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
				last_activity TIMESTAMPTZ NOT NULL DEFAULT now(),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Posts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at DESC)`,
			tables.Posts, tables.Posts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_tags_idx ON %s USING GIN (tags)`,
			tables.Posts, tables.Posts),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				post_id UUID NOT NULL,
				author_id UUID NOT NULL,
				content TEXT NOT NULL,
				upvotes INT NOT NULL DEFAULT 0,
				parent_comment_id UUID,
				depth INT NOT NULL DEFAULT 0,
				is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
				deleted_by_admin BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Comments),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_post_id_idx ON %s (post_id)`,
			tables.Comments, tables.Comments),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_parent_idx ON %s (parent_comment_id)`,
			tables.Comments, tables.Comments),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL,
				target_type TEXT NOT NULL,
				target_id UUID NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (user_id, target_type, target_id)
			)`, tables.Upvotes),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				difficulty TEXT NOT NULL,
				category TEXT NOT NULL,
				initial_message TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Scenarios),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL,
				scenario_id UUID NOT NULL,
				transcript JSONB NOT NULL DEFAULT '[]',
				overall_score INT NOT NULL DEFAULT 0,
				feedback TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMPTZ NOT NULL,
				completed_at TIMESTAMPTZ NOT NULL,
				duration_seconds INT NOT NULL DEFAULT 0
			)`, tables.Simulations),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_completed_idx ON %s (completed_at DESC)`,
			tables.Simulations, tables.Simulations),
	}
}

// DropTables removes every table. Guarded against production by the caller.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{
		tables.Simulations,
		tables.Scenarios,
		tables.Upvotes,
		tables.Comments,
		tables.Posts,
		tables.Users,
	} {
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}
