package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomworks/loom-go/internal/repo"
	"github.com/loomworks/loom-go/internal/schedule"
)

// ScheduleStore is the postgres-backed repo.ScheduleStorage.
type ScheduleStore struct {
	db DB
}

const (
	insertScheduleQuery = `INSERT INTO schedules (
		repository_name,
		schedule_name,
		status,
		schedule_body
	) VALUES ($1,$2,$3,$4)`

	selectAllSchedulesQuery = `SELECT schedule_body FROM schedules ORDER BY repository_name ASC, schedule_name ASC`

	selectSchedulesByRepositoryQuery = `SELECT schedule_body FROM schedules
	 WHERE repository_name = $1
	 ORDER BY schedule_name ASC`

	selectScheduleByNameQuery = `SELECT schedule_body FROM schedules
	 WHERE repository_name = $1 AND schedule_name = $2`

	updateScheduleQuery = `UPDATE schedules SET status = $1, schedule_body = $2
	 WHERE repository_name = $3 AND schedule_name = $4`

	deleteScheduleQuery = `DELETE FROM schedules WHERE repository_name = $1 AND schedule_name = $2`

	wipeSchedulesQuery = `DELETE FROM schedules`
)

func NewScheduleStore(db DB) *ScheduleStore {
	if db == nil {
		return nil
	}
	return &ScheduleStore{db: db}
}

func (s *ScheduleStore) AllSchedules(ctx context.Context, repositoryName string) ([]schedule.Schedule, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("schedule store not initialized")
	}
	repositoryName = strings.TrimSpace(repositoryName)

	query := selectAllSchedulesQuery
	args := []any{}
	if repositoryName != "" {
		query = selectSchedulesByRepositoryQuery
		args = append(args, repositoryName)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]schedule.Schedule, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sched, err := schedule.UnmarshalSchedule(body)
		if err != nil {
			return nil, fmt.Errorf("decode schedule body: %w", err)
		}
		schedules = append(schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

func (s *ScheduleStore) GetScheduleByName(ctx context.Context, repositoryName, scheduleName string) (*schedule.Schedule, error) {
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

	rows, err := s.db.QueryContext(ctx, selectScheduleByNameQuery, repositoryName, scheduleName)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get schedule: %w", err)
		}
		return nil, nil
	}
	var body []byte
	if err := rows.Scan(&body); err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	sched, err := schedule.UnmarshalSchedule(body)
	if err != nil {
		return nil, fmt.Errorf("decode schedule body: %w", err)
	}
	return &sched, nil
}

func (s *ScheduleStore) AddSchedule(ctx context.Context, repositoryName string, sched schedule.Schedule) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("schedule store not initialized")
	}
	sched, err := bindRepository(repositoryName, sched)
	if err != nil {
		return err
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	body, err := schedule.MarshalSchedule(sched)
	if err != nil {
		return fmt.Errorf("encode schedule body: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		insertScheduleQuery,
		sched.RepositoryName,
		sched.Name,
		string(sched.Status),
		body,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf(
				"schedule %q for repository %q is already present: %w",
				sched.Name, sched.RepositoryName, repo.ErrAlreadyExists,
			)
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) UpdateSchedule(ctx context.Context, repositoryName string, sched schedule.Schedule) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("schedule store not initialized")
	}
	sched, err := bindRepository(repositoryName, sched)
	if err != nil {
		return err
	}
	if err := sched.Validate(); err != nil {
		return err
	}
	if err := s.requireSchedule(ctx, sched.RepositoryName, sched.Name); err != nil {
		return err
	}
	body, err := schedule.MarshalSchedule(sched)
	if err != nil {
		return fmt.Errorf("encode schedule body: %w", err)
	}

	if _, err := s.db.ExecContext(
		ctx,
		updateScheduleQuery,
		string(sched.Status),
		body,
		sched.RepositoryName,
		sched.Name,
	); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) DeleteSchedule(ctx context.Context, repositoryName string, sched schedule.Schedule) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("schedule store not initialized")
	}
	sched, err := bindRepository(repositoryName, sched)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sched.Name) == "" {
		return fmt.Errorf("schedule name is required")
	}
	if err := s.requireSchedule(ctx, sched.RepositoryName, sched.Name); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, deleteScheduleQuery, sched.RepositoryName, sched.Name); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) Wipe(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("schedule store not initialized")
	}
	if _, err := s.db.ExecContext(ctx, wipeSchedulesQuery); err != nil {
		return fmt.Errorf("wipe schedules: %w", err)
	}
	return nil
}

// requireSchedule is the advisory existence pre-check used by update and
// delete. It is not atomic with the following write.
func (s *ScheduleStore) requireSchedule(ctx context.Context, repositoryName, scheduleName string) error {
	existing, err := s.GetScheduleByName(ctx, repositoryName, scheduleName)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf(
			"schedule %q for repository %q is not present: %w",
			scheduleName, repositoryName, repo.ErrNotFound,
		)
	}
	return nil
}

// bindRepository reconciles the repository argument with the schedule record.
// The argument is authoritative; a conflicting record is a caller error.
func bindRepository(repositoryName string, sched schedule.Schedule) (schedule.Schedule, error) {
	repositoryName = strings.TrimSpace(repositoryName)
	if repositoryName == "" {
		return schedule.Schedule{}, fmt.Errorf("repository name is required")
	}
	recordRepository := strings.TrimSpace(sched.RepositoryName)
	if recordRepository != "" && recordRepository != repositoryName {
		return schedule.Schedule{}, fmt.Errorf(
			"schedule repository %q does not match %q", recordRepository, repositoryName,
		)
	}
	sched.RepositoryName = repositoryName
	return sched, nil
}
