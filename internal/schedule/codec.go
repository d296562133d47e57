package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bodies are stored as opaque encoded records. The payload structs pin the
// persisted field names so rows written today stay decodable as the domain
// structs evolve.

type schedulePayload struct {
	RepositoryName string         `json:"repositoryName"`
	Name           string         `json:"name"`
	CronSchedule   string         `json:"cronSchedule"`
	Status         string         `json:"status"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type tickDataPayload struct {
	ScheduleName string    `json:"scheduleName"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"runId,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// MarshalSchedule serializes a schedule body with stable field names.
func MarshalSchedule(s Schedule) ([]byte, error) {
	raw, err := json.Marshal(schedulePayload{
		RepositoryName: s.RepositoryName,
		Name:           s.Name,
		CronSchedule:   s.CronSchedule,
		Status:         string(s.Status),
		Metadata:       s.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal schedule: %w", err)
	}
	return raw, nil
}

// UnmarshalSchedule parses a persisted schedule body.
func UnmarshalSchedule(raw []byte) (Schedule, error) {
	var payload schedulePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Schedule{}, fmt.Errorf("unmarshal schedule: %w", err)
	}
	return Schedule{
		RepositoryName: payload.RepositoryName,
		Name:           payload.Name,
		CronSchedule:   payload.CronSchedule,
		Status:         Status(payload.Status),
		Metadata:       payload.Metadata,
	}, nil
}

// MarshalTickData serializes a tick body with stable field names.
func MarshalTickData(d TickData) ([]byte, error) {
	raw, err := json.Marshal(tickDataPayload{
		ScheduleName: d.ScheduleName,
		Status:       string(d.Status),
		Timestamp:    d.Timestamp.UTC(),
		RunID:        d.RunID,
		Error:        d.Error,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tick data: %w", err)
	}
	return raw, nil
}

// UnmarshalTickData parses a persisted tick body.
func UnmarshalTickData(raw []byte) (TickData, error) {
	var payload tickDataPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return TickData{}, fmt.Errorf("unmarshal tick data: %w", err)
	}
	return TickData{
		ScheduleName: payload.ScheduleName,
		Status:       TickStatus(payload.Status),
		Timestamp:    payload.Timestamp,
		RunID:        payload.RunID,
		Error:        payload.Error,
	}, nil
}
