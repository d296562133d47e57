// Package memory provides an in-memory repo.ScheduleStorage with the same
// domain-error semantics as the postgres backend. It backs tests and local
// single-process runs; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/loomworks/loom-go/internal/repo"
	"github.com/loomworks/loom-go/internal/schedule"
)

type scheduleKey struct {
	repository string
	name       string
}

type tickRow struct {
	repository string
	tick       schedule.Tick
}

// ScheduleStorage is an in-memory repo.ScheduleStorage. Safe for concurrent use.
type ScheduleStorage struct {
	mu         sync.Mutex
	order      []scheduleKey
	schedules  map[scheduleKey]schedule.Schedule
	ticks      []tickRow
	nextTickID int64
}

func NewScheduleStorage() *ScheduleStorage {
	return &ScheduleStorage{
		schedules:  map[scheduleKey]schedule.Schedule{},
		nextTickID: 1,
	}
}

func (s *ScheduleStorage) AllSchedules(_ context.Context, repositoryName string) ([]schedule.Schedule, error) {
	if s == nil {
		return nil, fmt.Errorf("schedule storage not initialized")
	}
	repositoryName = strings.TrimSpace(repositoryName)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]schedule.Schedule, 0, len(s.order))
	for _, key := range s.order {
		if repositoryName != "" && key.repository != repositoryName {
			continue
		}
		out = append(out, cloneSchedule(s.schedules[key]))
	}
	return out, nil
}

func (s *ScheduleStorage) GetScheduleByName(_ context.Context, repositoryName, scheduleName string) (*schedule.Schedule, error) {
	if s == nil {
		return nil, fmt.Errorf("schedule storage not initialized")
	}
	key, err := makeKey(repositoryName, scheduleName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[key]
	if !ok {
		return nil, nil
	}
	clone := cloneSchedule(sched)
	return &clone, nil
}

func (s *ScheduleStorage) GetScheduleTicks(_ context.Context, repositoryName, scheduleName string) ([]schedule.Tick, error) {
	if s == nil {
		return nil, fmt.Errorf("schedule storage not initialized")
	}
	if _, err := makeKey(repositoryName, scheduleName); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]schedule.Tick, 0)
	for _, row := range s.ticks {
		if row.repository == strings.TrimSpace(repositoryName) && row.tick.Data.ScheduleName == strings.TrimSpace(scheduleName) {
			out = append(out, row.tick)
		}
	}
	return out, nil
}

func (s *ScheduleStorage) CreateScheduleTick(_ context.Context, repositoryName string, data schedule.TickData) (schedule.Tick, error) {
	if s == nil {
		return schedule.Tick{}, fmt.Errorf("schedule storage not initialized")
	}
	repositoryName = strings.TrimSpace(repositoryName)
	if repositoryName == "" {
		return schedule.Tick{}, fmt.Errorf("repository name is required")
	}
	if err := data.Validate(); err != nil {
		return schedule.Tick{}, err
	}
	data.Timestamp = data.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	tick := schedule.Tick{ID: s.nextTickID, Data: data}
	s.nextTickID++
	s.ticks = append(s.ticks, tickRow{repository: repositoryName, tick: tick})
	return tick, nil
}

func (s *ScheduleStorage) UpdateScheduleTick(_ context.Context, repositoryName string, tick schedule.Tick) error {
	if s == nil {
		return fmt.Errorf("schedule storage not initialized")
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
	tick.Data.Timestamp = tick.Data.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.ticks {
		if row.repository == repositoryName && row.tick.ID == tick.ID {
			s.ticks[i].tick = tick
			return nil
		}
	}
	// Zero rows matched: silent no-op, same as the relational backend.
	return nil
}

func (s *ScheduleStorage) AddSchedule(_ context.Context, repositoryName string, sched schedule.Schedule) error {
	if s == nil {
		return fmt.Errorf("schedule storage not initialized")
	}
	sched, key, err := bindSchedule(repositoryName, sched)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[key]; ok {
		return fmt.Errorf(
			"schedule %q for repository %q is already present: %w",
			sched.Name, sched.RepositoryName, repo.ErrAlreadyExists,
		)
	}
	s.schedules[key] = cloneSchedule(sched)
	s.order = append(s.order, key)
	return nil
}

func (s *ScheduleStorage) UpdateSchedule(_ context.Context, repositoryName string, sched schedule.Schedule) error {
	if s == nil {
		return fmt.Errorf("schedule storage not initialized")
	}
	sched, key, err := bindSchedule(repositoryName, sched)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[key]; !ok {
		return notPresent(sched)
	}
	s.schedules[key] = cloneSchedule(sched)
	return nil
}

func (s *ScheduleStorage) DeleteSchedule(_ context.Context, repositoryName string, sched schedule.Schedule) error {
	if s == nil {
		return fmt.Errorf("schedule storage not initialized")
	}
	sched, key, err := bindSchedule(repositoryName, sched)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[key]; !ok {
		return notPresent(sched)
	}
	delete(s.schedules, key)
	for i, existing := range s.order {
		if existing == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *ScheduleStorage) Wipe(_ context.Context) error {
	if s == nil {
		return fmt.Errorf("schedule storage not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Schedules only; tick history is retained.
	s.schedules = map[scheduleKey]schedule.Schedule{}
	s.order = nil
	return nil
}

func makeKey(repositoryName, scheduleName string) (scheduleKey, error) {
	repositoryName = strings.TrimSpace(repositoryName)
	scheduleName = strings.TrimSpace(scheduleName)
	if repositoryName == "" {
		return scheduleKey{}, fmt.Errorf("repository name is required")
	}
	if scheduleName == "" {
		return scheduleKey{}, fmt.Errorf("schedule name is required")
	}
	return scheduleKey{repository: repositoryName, name: scheduleName}, nil
}

func bindSchedule(repositoryName string, sched schedule.Schedule) (schedule.Schedule, scheduleKey, error) {
	repositoryName = strings.TrimSpace(repositoryName)
	if repositoryName == "" {
		return schedule.Schedule{}, scheduleKey{}, fmt.Errorf("repository name is required")
	}
	recordRepository := strings.TrimSpace(sched.RepositoryName)
	if recordRepository != "" && recordRepository != repositoryName {
		return schedule.Schedule{}, scheduleKey{}, fmt.Errorf(
			"schedule repository %q does not match %q", recordRepository, repositoryName,
		)
	}
	sched.RepositoryName = repositoryName
	if err := sched.Validate(); err != nil {
		return schedule.Schedule{}, scheduleKey{}, err
	}
	return sched, scheduleKey{repository: repositoryName, name: sched.Name}, nil
}

func notPresent(sched schedule.Schedule) error {
	return fmt.Errorf(
		"schedule %q for repository %q is not present: %w",
		sched.Name, sched.RepositoryName, repo.ErrNotFound,
	)
}

func cloneSchedule(sched schedule.Schedule) schedule.Schedule {
	if sched.Metadata != nil {
		meta := make(map[string]any, len(sched.Metadata))
		for k, v := range sched.Metadata {
			meta[k] = v
		}
		sched.Metadata = meta
	}
	return sched
}
