package postgres

import (
	"context"
	"fmt"
)

const (
	createSchedulesTableQuery = `CREATE TABLE IF NOT EXISTS schedules (
		repository_name TEXT NOT NULL,
		schedule_name TEXT NOT NULL,
		status TEXT NOT NULL,
		schedule_body JSONB NOT NULL,
		CONSTRAINT schedules_repository_schedule_key UNIQUE (repository_name, schedule_name)
	)`

	createScheduleTicksTableQuery = `CREATE TABLE IF NOT EXISTS schedule_ticks (
		id BIGSERIAL PRIMARY KEY,
		repository_name TEXT NOT NULL,
		schedule_name TEXT NOT NULL,
		status TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		tick_body JSONB NOT NULL
	)`

	createScheduleTicksIndexQuery = `CREATE INDEX IF NOT EXISTS schedule_ticks_repository_schedule_idx
		ON schedule_ticks (repository_name, schedule_name)`
)

// EnsureSchema creates the schedule tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db DB) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	for _, query := range []string{
		createSchedulesTableQuery,
		createScheduleTicksTableQuery,
		createScheduleTicksIndexQuery,
	} {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("ensure schedule schema: %w", err)
		}
	}
	return nil
}
