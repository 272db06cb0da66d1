// Package dataset loads the task scenarios that drive a verification run.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is one expected fact about the board: a task card titled Task sits
// in Column of App and carries every tag in Tags.
type Scenario struct {
	ID     string   `json:"id" yaml:"id"`
	App    string   `json:"app" yaml:"app"`
	Task   string   `json:"task" yaml:"task"`
	Column string   `json:"column" yaml:"column"`
	Tags   []string `json:"tags" yaml:"tags"`
}

// Title is the human readable scenario name used in reports.
func (s Scenario) Title() string {
	return fmt.Sprintf("%s - Verify task %q in %s", s.ID, s.Task, s.App)
}

// Dataset is an ordered, read-only list of scenarios.
type Dataset []Scenario

// ErrUnknownFormat is returned for files that are neither JSON nor YAML.
var ErrUnknownFormat = errors.New("unknown dataset format")

// Load reads and validates a dataset file. The format follows the extension:
// .json, .yaml or .yml.
func Load(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	return Parse(raw)
}

// Parse validates a JSON document against the dataset schema and decodes it.
func Parse(doc []byte) (Dataset, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	var ds Dataset
	if err := json.Unmarshal(doc, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return ds, nil
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// DuplicateIDs returns ids used by more than one scenario, in first-seen order.
func (d Dataset) DuplicateIDs() []string {
	seen := make(map[string]int, len(d))
	var dups []string
	for _, s := range d {
		seen[s.ID]++
		if seen[s.ID] == 2 {
			dups = append(dups, s.ID)
		}
	}
	return dups
}

// Filter keeps the scenarios whose id is listed, preserving dataset order.
// An empty id list returns the dataset unchanged.
func (d Dataset) Filter(ids ...string) Dataset {
	if len(ids) == 0 {
		return d
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out Dataset
	for _, s := range d {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// Apps returns the distinct application names in first-seen order.
func (d Dataset) Apps() []string {
	seen := make(map[string]bool)
	var apps []string
	for _, s := range d {
		if !seen[s.App] {
			seen[s.App] = true
			apps = append(apps, s.App)
		}
	}
	return apps
}
