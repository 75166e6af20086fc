package report

import "testing"

func validReportYAML() []byte {
	return []byte(`
task_id: "3"
expert_id: 1
expert_name: reviewer1
status: done
started_at: 2026-03-05T14:00:00Z
summary: looked good
`)
}

func TestParseValid(t *testing.T) {
	r, err := Parse(validReportYAML())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Status != StatusDone {
		t.Errorf("Status = %q, want done", r.Status)
	}
	if r.Details.Findings == nil || r.Details.FilesModified == nil {
		t.Errorf("empty lists should be normalized to non-nil, got %+v", r.Details)
	}
}

func TestParseInvalidStatus(t *testing.T) {
	b := []byte(`
task_id: "3"
expert_name: reviewer1
status: bogus
`)
	if _, err := Parse(b); err == nil {
		t.Fatal("expected error for invalid status literal")
	}
}

func TestParseMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing task_id", "expert_name: reviewer1\nstatus: done\n"},
		{"missing expert_name", "task_id: \"1\"\nstatus: done\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMarshalNormalizesEmptyLists(t *testing.T) {
	r := Report{TaskID: "1", ExpertName: "reviewer1", Status: StatusPending}
	b, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse(Marshal(r)): %v", err)
	}
	if len(got.Details.Findings) != 0 || got.Details.Findings == nil {
		t.Errorf("Findings = %#v, want non-nil empty slice", got.Details.Findings)
	}
}
