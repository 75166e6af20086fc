// Package report validates and (de)serializes the report file format
// the spec documents but does not assign an owner to (spec.md §6). No
// other package of this module calls it; the router and executor do
// not read report files.
package report

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is one of the four literal strings the format allows.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// Details is the report's nested detail object.
type Details struct {
	Findings        []string `yaml:"findings"`
	Recommendations []string `yaml:"recommendations"`
	FilesModified   []string `yaml:"files_modified"`
	FilesCreated    []string `yaml:"files_created"`
}

// Report is one expert<ID>_report.yaml file.
type Report struct {
	TaskID      string     `yaml:"task_id"`
	ExpertID    int        `yaml:"expert_id"`
	ExpertName  string     `yaml:"expert_name"`
	Status      Status     `yaml:"status"`
	StartedAt   time.Time  `yaml:"started_at"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
	Summary     string     `yaml:"summary"`
	Details     Details    `yaml:"details"`
	Errors      []string   `yaml:"errors"`
}

// Parse decodes and strictly validates a report file's bytes.
func Parse(b []byte) (Report, error) {
	var r Report
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Report{}, fmt.Errorf("parse report yaml: %w", err)
	}
	if err := Validate(r); err != nil {
		return Report{}, err
	}
	return normalizeEmptyLists(r), nil
}

// Validate checks the strict schema: exact status literals and
// required scalar fields present.
func Validate(r Report) error {
	if r.TaskID == "" {
		return fmt.Errorf("report: task_id is required")
	}
	if r.ExpertName == "" {
		return fmt.Errorf("report: expert_name is required")
	}
	if !r.Status.valid() {
		return fmt.Errorf("report: invalid status %q", r.Status)
	}
	return nil
}

// normalizeEmptyLists ensures every list field decodes to an empty
// (non-nil) slice rather than nil, so re-marshaling always yields `[]`
// rather than `null` for an absent list, per spec.md §6.
func normalizeEmptyLists(r Report) Report {
	if r.Details.Findings == nil {
		r.Details.Findings = []string{}
	}
	if r.Details.Recommendations == nil {
		r.Details.Recommendations = []string{}
	}
	if r.Details.FilesModified == nil {
		r.Details.FilesModified = []string{}
	}
	if r.Details.FilesCreated == nil {
		r.Details.FilesCreated = []string{}
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	return r
}

// Marshal encodes r back to YAML, normalizing empty lists first.
func Marshal(r Report) ([]byte, error) {
	return yaml.Marshal(normalizeEmptyLists(r))
}
