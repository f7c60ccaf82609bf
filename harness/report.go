package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report is the JSON document written after a run.
type Report struct {
	Timestamp string  `json:"timestamp"`
	Summary   Summary `json:"summary"`
	Logs      []Entry `json:"logs"`
}

// Report snapshots the observer's summary and log.
func (o *Observer) Report() Report {
	entries := o.Entries()
	for i := range entries {
		entries[i].Details = jsonSafe(entries[i].Details)
	}
	return Report{
		Timestamp: o.now().Format(time.RFC3339),
		Summary:   o.Summary(),
		Logs:      entries,
	}
}

// jsonSafe replaces values that cannot be marshaled with their string form.
func jsonSafe(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for k, v := range details {
		if _, err := json.Marshal(v); err != nil {
			out[k] = fmt.Sprint(v)
			continue
		}
		out[k] = v
	}
	return out
}

// ReportFileName names a report written at t.
func ReportFileName(t time.Time) string {
	return "test_report_" + t.Format("20060102_150405") + ".json"
}

// WriteReport writes r into dir and returns the file's path.
func WriteReport(dir string, r Report, at time.Time) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, ReportFileName(at))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
