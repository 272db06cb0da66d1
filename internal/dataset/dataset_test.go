package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tasksJSON = `[
  {"id": "T1", "app": "Planner", "task": "Design review", "column": "In Progress", "tags": ["urgent", "design"]},
  {"id": "T2", "app": "Planner", "task": "Write docs", "column": "To Do", "tags": []},
  {"id": "T3", "app": "Roadmap", "task": "Q3 goals", "column": "Done", "tags": ["planning"]}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSON(t *testing.T) {
	ds, err := Load(writeFile(t, "tasks.json", tasksJSON))
	require.NoError(t, err)
	require.Len(t, ds, 3)

	assert.Equal(t, Scenario{
		ID:     "T1",
		App:    "Planner",
		Task:   "Design review",
		Column: "In Progress",
		Tags:   []string{"urgent", "design"},
	}, ds[0])
	assert.Empty(t, ds[1].Tags)
	assert.Equal(t, []string{"Planner", "Roadmap"}, ds.Apps())
}

func TestLoadYAML(t *testing.T) {
	ds, err := Load(writeFile(t, "tasks.yaml", `
- id: T1
  app: Planner
  task: Design review
  column: In Progress
  tags: [urgent, design]
`))
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, []string{"urgent", "design"}, ds[0].Tags)
}

func TestLoadErrors(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "tasks.csv", "id,app"))
		require.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})

	t.Run("schema violations are listed", func(t *testing.T) {
		_, err := Load(writeFile(t, "tasks.json", `[
			{"id": "T1", "app": "Planner", "task": "", "column": "Done", "tags": ["ok"]},
			{"id": "T2", "app": "Planner", "column": "Done", "tags": [""]}
		]`))

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.GreaterOrEqual(t, len(verr.Errors), 3)
		assert.Contains(t, err.Error(), "0.task")
		assert.Contains(t, err.Error(), "task is required")
		assert.Contains(t, err.Error(), "1.tags.0")
	})

	t.Run("object instead of array", func(t *testing.T) {
		_, err := Parse([]byte(`{"id": "T1"}`))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestTitle(t *testing.T) {
	s := Scenario{ID: "T1", App: "Planner", Task: "Design review"}
	assert.Equal(t, `T1 - Verify task "Design review" in Planner`, s.Title())
}

func TestDuplicateIDs(t *testing.T) {
	ds := Dataset{{ID: "A"}, {ID: "B"}, {ID: "A"}, {ID: "A"}, {ID: "C"}, {ID: "B"}}
	assert.Equal(t, []string{"A", "B"}, ds.DuplicateIDs())
	assert.Empty(t, Dataset{{ID: "A"}}.DuplicateIDs())
}

func TestFilter(t *testing.T) {
	ds, err := Parse([]byte(tasksJSON))
	require.NoError(t, err)

	assert.Len(t, ds.Filter(), 3)

	picked := ds.Filter("T3", "T1", "T9")
	require.Len(t, picked, 2)
	assert.Equal(t, "T1", picked[0].ID)
	assert.Equal(t, "T3", picked[1].ID)
}
