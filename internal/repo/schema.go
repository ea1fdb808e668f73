package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — DDL таблиц runs и schedules. runs хранит только отчёты о
// запусках: отметки обхода живут в памяти Engine и не сохраняются.
// schedules хранит состояние расписаний из SCHEDULES_FILE.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          UUID PRIMARY KEY,
		graph       TEXT NOT NULL DEFAULT '',
		root        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		inputs      JSONB,
		task_order  TEXT[] NOT NULL DEFAULT '{}',
		dry_run     BOOLEAN NOT NULL DEFAULT FALSE,
		started_at  TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		error       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS runs_graph_created_idx ON runs (graph, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS runs_status_idx ON runs (status)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		name         TEXT PRIMARY KEY,
		graph_file   TEXT NOT NULL,
		cron_expr    TEXT,
		interval_sec INTEGER,
		timezone     TEXT NOT NULL DEFAULT '',
		enabled      BOOLEAN NOT NULL DEFAULT TRUE,
		next_due_at  TIMESTAMPTZ,
		last_run_at  TIMESTAMPTZ,
		last_run_id  UUID,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate создаёт таблицы, если их нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
