package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/loom-go/internal/repo"
	"github.com/loomworks/loom-go/internal/schedule"
)

type schedulesAPI struct {
	logger *slog.Logger
	store  repo.ScheduleStorage
}

func newSchedulesAPI(logger *slog.Logger, store repo.ScheduleStorage) *schedulesAPI {
	return &schedulesAPI{logger: logger, store: store}
}

func (api *schedulesAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/schedules", api.handleListAllSchedules)

	mux.HandleFunc("GET /api/v1/repositories/{repository_name}/schedules", api.handleListSchedules)
	mux.HandleFunc("POST /api/v1/repositories/{repository_name}/schedules", api.handleAddSchedule)
	mux.HandleFunc("GET /api/v1/repositories/{repository_name}/schedules/{schedule_name}", api.handleGetSchedule)
	mux.HandleFunc("PUT /api/v1/repositories/{repository_name}/schedules/{schedule_name}", api.handleUpdateSchedule)
	mux.HandleFunc("DELETE /api/v1/repositories/{repository_name}/schedules/{schedule_name}", api.handleDeleteSchedule)

	mux.HandleFunc("GET /api/v1/repositories/{repository_name}/schedules/{schedule_name}/ticks", api.handleListTicks)
	mux.HandleFunc("POST /api/v1/repositories/{repository_name}/schedules/{schedule_name}/ticks", api.handleCreateTick)
	mux.HandleFunc("PUT /api/v1/repositories/{repository_name}/ticks/{tick_id}", api.handleUpdateTick)
}

type scheduleResource struct {
	RepositoryName string         `json:"repository_name"`
	Name           string         `json:"name"`
	CronSchedule   string         `json:"cron_schedule"`
	Status         string         `json:"status"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type scheduleRequest struct {
	Name         string         `json:"name"`
	CronSchedule string         `json:"cron_schedule"`
	Status       string         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type tickResource struct {
	ID           int64     `json:"id"`
	ScheduleName string    `json:"schedule_name"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"run_id,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type tickRequest struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type updateTickRequest struct {
	ScheduleName string    `json:"schedule_name"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	RunID        string    `json:"run_id,omitempty"`
	Error        string    `json:"error,omitempty"`
}

func (api *schedulesAPI) handleListAllSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := api.store.AllSchedules(r.Context(), "")
	if err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"schedules": toScheduleResources(schedules)})
}

func (api *schedulesAPI) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")
	schedules, err := api.store.AllSchedules(r.Context(), repositoryName)
	if err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"schedules": toScheduleResources(schedules)})
}

func (api *schedulesAPI) handleAddSchedule(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	record, ok := api.scheduleFromRequest(w, r, repositoryName, req)
	if !ok {
		return
	}

	if err := api.store.AddSchedule(r.Context(), repositoryName, record); err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, toScheduleResource(record))
}

func (api *schedulesAPI) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")
	scheduleName := r.PathValue("schedule_name")

	record, err := api.store.GetScheduleByName(r.Context(), repositoryName, scheduleName)
	if err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	if record == nil {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	api.writeJSON(w, http.StatusOK, toScheduleResource(*record))
}

func (api *schedulesAPI) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")
	scheduleName := r.PathValue("schedule_name")

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name != "" && req.Name != scheduleName {
		api.writeError(w, r, http.StatusBadRequest, "name_mismatch")
		return
	}
	req.Name = scheduleName
	record, ok := api.scheduleFromRequest(w, r, repositoryName, req)
	if !ok {
		return
	}

	if err := api.store.UpdateSchedule(r.Context(), repositoryName, record); err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, toScheduleResource(record))
}

func (api *schedulesAPI) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")
	scheduleName := r.PathValue("schedule_name")

	record, err := api.store.GetScheduleByName(r.Context(), repositoryName, scheduleName)
	if err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	if record == nil {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	if err := api.store.DeleteSchedule(r.Context(), repositoryName, *record); err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *schedulesAPI) handleListTicks(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")
	scheduleName := r.PathValue("schedule_name")

	ticks, err := api.store.GetScheduleTicks(r.Context(), repositoryName, scheduleName)
	if err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	out := make([]tickResource, 0, len(ticks))
	for _, tick := range ticks {
		out = append(out, toTickResource(tick))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"ticks": out})
}

func (api *schedulesAPI) handleCreateTick(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")
	scheduleName := r.PathValue("schedule_name")

	var req tickRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	data := schedule.TickData{
		ScheduleName: scheduleName,
		Status:       schedule.TickStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		Timestamp:    req.Timestamp,
		RunID:        strings.TrimSpace(req.RunID),
		Error:        req.Error,
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now().UTC()
	}
	if data.RunID == "" && data.Status == schedule.TickStatusStarted {
		data.RunID = uuid.NewString()
	}
	if err := data.Validate(); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_tick")
		return
	}

	tick, err := api.store.CreateScheduleTick(r.Context(), repositoryName, data)
	if err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, toTickResource(tick))
}

func (api *schedulesAPI) handleUpdateTick(w http.ResponseWriter, r *http.Request) {
	repositoryName := r.PathValue("repository_name")
	tickID, err := strconv.ParseInt(r.PathValue("tick_id"), 10, 64)
	if err != nil || tickID <= 0 {
		api.writeError(w, r, http.StatusBadRequest, "invalid_tick_id")
		return
	}

	var req updateTickRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	tick := schedule.Tick{
		ID: tickID,
		Data: schedule.TickData{
			ScheduleName: strings.TrimSpace(req.ScheduleName),
			Status:       schedule.TickStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
			Timestamp:    req.Timestamp,
			RunID:        strings.TrimSpace(req.RunID),
			Error:        req.Error,
		},
	}
	if tick.Data.Timestamp.IsZero() {
		tick.Data.Timestamp = time.Now().UTC()
	}
	if err := tick.Data.Validate(); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_tick")
		return
	}

	if err := api.store.UpdateScheduleTick(r.Context(), repositoryName, tick); err != nil {
		api.writeRepoError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, toTickResource(tick))
}

func (api *schedulesAPI) scheduleFromRequest(w http.ResponseWriter, r *http.Request, repositoryName string, req scheduleRequest) (schedule.Schedule, bool) {
	record := schedule.Schedule{
		RepositoryName: strings.TrimSpace(repositoryName),
		Name:           strings.TrimSpace(req.Name),
		CronSchedule:   strings.TrimSpace(req.CronSchedule),
		Status:         schedule.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		Metadata:       req.Metadata,
	}
	if record.Status == "" {
		record.Status = schedule.StatusStopped
	}
	if err := record.Validate(); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_schedule")
		return schedule.Schedule{}, false
	}
	return record, true
}

func toScheduleResources(schedules []schedule.Schedule) []scheduleResource {
	out := make([]scheduleResource, 0, len(schedules))
	for _, record := range schedules {
		out = append(out, toScheduleResource(record))
	}
	return out
}

func toScheduleResource(record schedule.Schedule) scheduleResource {
	return scheduleResource{
		RepositoryName: record.RepositoryName,
		Name:           record.Name,
		CronSchedule:   record.CronSchedule,
		Status:         string(record.Status),
		Metadata:       record.Metadata,
	}
}

func toTickResource(tick schedule.Tick) tickResource {
	return tickResource{
		ID:           tick.ID,
		ScheduleName: tick.Data.ScheduleName,
		Status:       string(tick.Data.Status),
		Timestamp:    tick.Data.Timestamp,
		RunID:        tick.Data.RunID,
		Error:        tick.Data.Error,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *schedulesAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *schedulesAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func (api *schedulesAPI) writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		api.writeError(w, r, http.StatusNotFound, "not_found")
	case errors.Is(err, repo.ErrAlreadyExists):
		api.writeError(w, r, http.StatusConflict, "conflict")
	default:
		requestID := r.Header.Get("X-Request-Id")
		api.logger.Error("storage failure", "request_id", requestID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
	}
}
