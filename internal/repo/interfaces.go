package repo

import (
	"context"

	"github.com/loomworks/loom-go/internal/schedule"
)

// ScheduleStorage persists named recurring schedules and their execution ticks.
//
// Every operation is an independent, short transaction on its own connection.
// UpdateSchedule and DeleteSchedule pre-check existence before writing; the
// check is not atomic with the write under concurrent writers, so callers
// relying on create-if-absent semantics must treat ErrAlreadyExists from the
// create path as the authoritative signal, not a prior read.
type ScheduleStorage interface {
	// AllSchedules returns every schedule for the repository, or for all
	// repositories when repositoryName is empty.
	AllSchedules(ctx context.Context, repositoryName string) ([]schedule.Schedule, error)

	// GetScheduleByName returns nil, nil when no such schedule exists.
	GetScheduleByName(ctx context.Context, repositoryName, scheduleName string) (*schedule.Schedule, error)

	// GetScheduleTicks returns every tick recorded for the schedule, oldest
	// first, each carrying its storage-assigned id.
	GetScheduleTicks(ctx context.Context, repositoryName, scheduleName string) ([]schedule.Tick, error)

	// CreateScheduleTick inserts a tick and returns it with its assigned id.
	// A uniqueness violation surfaces as an error wrapping ErrAlreadyExists.
	CreateScheduleTick(ctx context.Context, repositoryName string, data schedule.TickData) (schedule.Tick, error)

	// UpdateScheduleTick rewrites status and body by tick id. Updating an id
	// that no longer exists is a silent no-op.
	UpdateScheduleTick(ctx context.Context, repositoryName string, tick schedule.Tick) error

	// AddSchedule inserts a schedule. A (repository, name) pair already present
	// surfaces as an error wrapping ErrAlreadyExists.
	AddSchedule(ctx context.Context, repositoryName string, sched schedule.Schedule) error

	// UpdateSchedule rewrites status and body of an existing schedule. A
	// schedule that was never added surfaces as an error wrapping ErrNotFound.
	UpdateSchedule(ctx context.Context, repositoryName string, sched schedule.Schedule) error

	// DeleteSchedule removes an existing schedule, with the same not-found
	// semantics as UpdateSchedule.
	DeleteSchedule(ctx context.Context, repositoryName string, sched schedule.Schedule) error

	// Wipe clears every schedule across all repositories. Ticks are retained
	// as history and must be wiped separately if at all.
	Wipe(ctx context.Context) error
}
