package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the activation state of a schedule.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusStopped Status = "STOPPED"
)

func (s Status) Valid() bool {
	return s == StatusRunning || s == StatusStopped
}

// TickStatus is the state of one recorded execution attempt. STARTED is the
// initial state on creation; the terminal states are reached only through tick
// updates. Storage does not validate transitions, the scheduler owns ordering.
type TickStatus string

const (
	TickStatusStarted TickStatus = "STARTED"
	TickStatusSuccess TickStatus = "SUCCESS"
	TickStatusFailure TickStatus = "FAILURE"
	TickStatusSkipped TickStatus = "SKIPPED"
)

func (s TickStatus) Valid() bool {
	switch s {
	case TickStatusStarted, TickStatusSuccess, TickStatusFailure, TickStatusSkipped:
		return true
	}
	return false
}

// Schedule is a named, recurring job registration scoped to one repository.
// The whole record is persisted as the schedule body; repository, name and
// status are mirrored into columns for querying.
type Schedule struct {
	RepositoryName string
	Name           string
	CronSchedule   string
	Status         Status
	Metadata       map[string]any
}

func (s Schedule) Validate() error {
	if strings.TrimSpace(s.RepositoryName) == "" {
		return errors.New("repository name is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("schedule name is required")
	}
	if strings.TrimSpace(s.CronSchedule) == "" {
		return errors.New("cron schedule is required")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid schedule status %q", s.Status)
	}
	return nil
}

// TickData is the payload of one recorded execution attempt of a schedule.
type TickData struct {
	ScheduleName string
	Status       TickStatus
	Timestamp    time.Time
	RunID        string
	Error        string
}

func (d TickData) Validate() error {
	if strings.TrimSpace(d.ScheduleName) == "" {
		return errors.New("schedule name is required")
	}
	if !d.Status.Valid() {
		return fmt.Errorf("invalid tick status %q", d.Status)
	}
	if d.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// Tick pairs a storage-assigned id with its tick data.
type Tick struct {
	ID   int64
	Data TickData
}
