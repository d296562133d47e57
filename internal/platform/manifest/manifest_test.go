package manifest

import (
	"strings"
	"testing"

	"github.com/loomworks/loom-go/internal/schedule"
)

const sampleManifest = `
schema: loom.repository.v1
repository: analytics
schedules:
  - name: nightly
    cron_schedule: "0 6 * * *"
    status: running
    metadata:
      owner: data-eng
  - name: weekly
    cron_schedule: "0 6 * * 1"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Repository != "analytics" {
		t.Fatalf("repository=%q, want analytics", m.Repository)
	}
	if len(m.Schedules) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(m.Schedules))
	}
}

func TestRecords(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	records := m.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	nightly := records[0]
	if nightly.RepositoryName != "analytics" || nightly.Name != "nightly" {
		t.Fatalf("unexpected record: %+v", nightly)
	}
	if nightly.Status != schedule.StatusRunning {
		t.Fatalf("status=%q, want RUNNING", nightly.Status)
	}
	if nightly.Metadata["owner"] != "data-eng" {
		t.Fatalf("metadata=%v", nightly.Metadata)
	}

	weekly := records[1]
	if weekly.Status != schedule.StatusStopped {
		t.Fatalf("expected default STOPPED status, got %q", weekly.Status)
	}
	if err := weekly.Validate(); err != nil {
		t.Fatalf("record should be valid: %v", err)
	}
}

func TestParseRejectsBadManifests(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"wrong schema", strings.Replace(sampleManifest, "loom.repository.v1", "loom.repository.v2", 1)},
		{"missing repository", strings.Replace(sampleManifest, "repository: analytics", "repository: \"\"", 1)},
		{"duplicate name", strings.Replace(sampleManifest, "name: weekly", "name: nightly", 1)},
		{"missing cron", strings.Replace(sampleManifest, `cron_schedule: "0 6 * * 1"`, `cron_schedule: ""`, 1)},
		{"bad status", strings.Replace(sampleManifest, "status: running", "status: paused", 1)},
		{"not yaml", "{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.input)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
