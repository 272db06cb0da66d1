package report

import (
	"encoding/json"
	"os"
	"time"

	"github.com/gotrs-io/boardcheck/internal/runner"
	"github.com/gotrs-io/boardcheck/internal/version"
)

type jsonReport struct {
	RunID      string       `json:"runId"`
	Build      version.Info `json:"build"`
	StartedAt  time.Time    `json:"startedAt"`
	DurationMS int64        `json:"durationMs"`
	Total      int          `json:"total"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Errored    int          `json:"errored"`
	Results    []jsonResult `json:"results"`
}

type jsonResult struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	App        string   `json:"app"`
	Column     string   `json:"column"`
	Task       string   `json:"task"`
	Tags       []string `json:"tags"`
	Status     string   `json:"status"`
	Kind       string   `json:"kind,omitempty"`
	Target     string   `json:"target,omitempty"`
	Message    string   `json:"message,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	DurationMS int64    `json:"durationMs"`
	Screenshot string   `json:"screenshot,omitempty"`
}

func newJSONReport(s *runner.Summary) jsonReport {
	out := jsonReport{
		RunID:      s.RunID,
		Build:      version.Get(),
		StartedAt:  s.StartedAt,
		DurationMS: s.Duration.Milliseconds(),
		Total:      s.Total(),
		Passed:     s.Passed,
		Failed:     s.Failed,
		Errored:    s.Errored,
		Results:    make([]jsonResult, len(s.Results)),
	}
	for i, r := range s.Results {
		tags := r.Scenario.Tags
		if tags == nil {
			tags = []string{}
		}
		out.Results[i] = jsonResult{
			ID:         r.Scenario.ID,
			Title:      r.Title,
			App:        r.Scenario.App,
			Column:     r.Scenario.Column,
			Task:       r.Scenario.Task,
			Tags:       tags,
			Status:     string(r.Status),
			Kind:       string(r.Kind),
			Target:     string(r.Target),
			Message:    r.Message,
			Missing:    r.Missing,
			DurationMS: r.Duration.Milliseconds(),
			Screenshot: r.Screenshot,
		}
	}
	return out
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(path string, s *runner.Summary) error {
	data, err := json.MarshalIndent(newJSONReport(s), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
