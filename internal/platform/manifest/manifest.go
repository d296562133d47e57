// Package manifest loads the repository manifest: the declarative list of
// schedules a repository ships with. The manifest seeds schedule storage at
// service start; records already present win over the manifest.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/loomworks/loom-go/internal/schedule"
)

const SchemaV1 = "loom.repository.v1"

type Manifest struct {
	Schema     string          `yaml:"schema"`
	Repository string          `yaml:"repository"`
	Schedules  []ScheduleEntry `yaml:"schedules"`
}

type ScheduleEntry struct {
	Name         string         `yaml:"name"`
	CronSchedule string         `yaml:"cron_schedule"`
	Status       string         `yaml:"status,omitempty"`
	Metadata     map[string]any `yaml:"metadata,omitempty"`
}

func Load(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(raw)
}

func Parse(input []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(input, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Schema) != SchemaV1 {
		return fmt.Errorf("manifest.schema must be %q", SchemaV1)
	}
	if strings.TrimSpace(m.Repository) == "" {
		return errors.New("manifest.repository is required")
	}

	seen := make(map[string]struct{}, len(m.Schedules))
	for i, entry := range m.Schedules {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return fmt.Errorf("manifest.schedules[%d].name is required", i)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("manifest.schedules[%d].name must be unique (duplicate %q)", i, name)
		}
		seen[name] = struct{}{}

		if strings.TrimSpace(entry.CronSchedule) == "" {
			return fmt.Errorf("manifest.schedules[%d].cron_schedule is required", i)
		}
		if _, err := entry.status(); err != nil {
			return fmt.Errorf("manifest.schedules[%d]: %w", i, err)
		}
	}
	return nil
}

// Records converts the manifest entries into schedule records bound to the
// manifest's repository. Entries without a status default to STOPPED.
func (m Manifest) Records() []schedule.Schedule {
	out := make([]schedule.Schedule, 0, len(m.Schedules))
	for _, entry := range m.Schedules {
		status, _ := entry.status()
		out = append(out, schedule.Schedule{
			RepositoryName: strings.TrimSpace(m.Repository),
			Name:           strings.TrimSpace(entry.Name),
			CronSchedule:   strings.TrimSpace(entry.CronSchedule),
			Status:         status,
			Metadata:       entry.Metadata,
		})
	}
	return out
}

func (e ScheduleEntry) status() (schedule.Status, error) {
	raw := strings.ToUpper(strings.TrimSpace(e.Status))
	if raw == "" {
		return schedule.StatusStopped, nil
	}
	status := schedule.Status(raw)
	if !status.Valid() {
		return "", fmt.Errorf("status unsupported: %q", e.Status)
	}
	return status, nil
}
