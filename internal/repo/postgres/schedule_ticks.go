package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomworks/loom-go/internal/repo"
	"github.com/loomworks/loom-go/internal/schedule"
)

const (
	insertScheduleTickQuery = `INSERT INTO schedule_ticks (
		repository_name,
		schedule_name,
		status,
		timestamp,
		tick_body
	) VALUES ($1,$2,$3,$4,$5)
	RETURNING id`

	selectTicksByScheduleQuery = `SELECT id, tick_body FROM schedule_ticks
	 WHERE repository_name = $1 AND schedule_name = $2
	 ORDER BY id ASC`

	updateScheduleTickQuery = `UPDATE schedule_ticks SET status = $1, tick_body = $2
	 WHERE repository_name = $3 AND id = $4`
)

func (s *ScheduleStore) GetScheduleTicks(ctx context.Context, repositoryName, scheduleName string) ([]schedule.Tick, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("schedule store not initialized")
	}
	repositoryName = strings.TrimSpace(repositoryName)
	scheduleName = strings.TrimSpace(scheduleName)
	if repositoryName == "" {
		return nil, fmt.Errorf("repository name is required")
	}
	if scheduleName == "" {
		return nil, fmt.Errorf("schedule name is required")
	}

	rows, err := s.db.QueryContext(ctx, selectTicksByScheduleQuery, repositoryName, scheduleName)
	if err != nil {
		return nil, fmt.Errorf("list schedule ticks: %w", err)
	}
	defer rows.Close()

	ticks := make([]schedule.Tick, 0)
	for rows.Next() {
		var id int64
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan schedule tick: %w", err)
		}
		data, err := schedule.UnmarshalTickData(body)
		if err != nil {
			return nil, fmt.Errorf("decode tick body: %w", err)
		}
		ticks = append(ticks, schedule.Tick{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedule ticks: %w", err)
	}
	return ticks, nil
}

func (s *ScheduleStore) CreateScheduleTick(ctx context.Context, repositoryName string, data schedule.TickData) (schedule.Tick, error) {
	if s == nil || s.db == nil {
		return schedule.Tick{}, fmt.Errorf("schedule store not initialized")
	}
	repositoryName = strings.TrimSpace(repositoryName)
	if repositoryName == "" {
		return schedule.Tick{}, fmt.Errorf("repository name is required")
	}
	if err := data.Validate(); err != nil {
		return schedule.Tick{}, err
	}
	data.Timestamp = normalizeTime(data.Timestamp)
	body, err := schedule.MarshalTickData(data)
	if err != nil {
		return schedule.Tick{}, fmt.Errorf("encode tick body: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(
		ctx,
		insertScheduleTickQuery,
		repositoryName,
		data.ScheduleName,
		string(data.Status),
		data.Timestamp,
		body,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return schedule.Tick{}, fmt.Errorf(
				"tick for schedule %q in repository %q is already present: %w",
				data.ScheduleName, repositoryName, repo.ErrAlreadyExists,
			)
		}
		return schedule.Tick{}, fmt.Errorf("insert schedule tick: %w", err)
	}
	return schedule.Tick{ID: id, Data: data}, nil
}

// UpdateScheduleTick rewrites status and body by tick id. Zero rows affected is
// not surfaced; a tick deleted by another writer makes this a no-op.
func (s *ScheduleStore) UpdateScheduleTick(ctx context.Context, repositoryName string, tick schedule.Tick) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("schedule store not initialized")
	}
	repositoryName = strings.TrimSpace(repositoryName)
	if repositoryName == "" {
		return fmt.Errorf("repository name is required")
	}
	if tick.ID <= 0 {
		return fmt.Errorf("tick id is required")
	}
	if err := tick.Data.Validate(); err != nil {
		return err
	}
	tick.Data.Timestamp = normalizeTime(tick.Data.Timestamp)
	body, err := schedule.MarshalTickData(tick.Data)
	if err != nil {
		return fmt.Errorf("encode tick body: %w", err)
	}

	if _, err := s.db.ExecContext(
		ctx,
		updateScheduleTickQuery,
		string(tick.Data.Status),
		body,
		repositoryName,
		tick.ID,
	); err != nil {
		return fmt.Errorf("update schedule tick: %w", err)
	}
	return nil
}
