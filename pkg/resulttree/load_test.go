package resulttree

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonTree = `{
  "marker": "run-42",
  "suites": [
    {
      "id": 1,
      "path": "features/login.feature",
      "tags": ["auth"],
      "state": "failed",
      "started_at": "2024-01-01T10:00:00Z",
      "ended_at": "2024-01-01T10:00:02.5Z",
      "scenarios": [
        {
          "id": 1,
          "sentence": "Successful login",
          "steps": [
            {"id": 1, "sentence": "Given a user", "state": "passed"},
            {
              "id": 2,
              "sentence": "Then I see the dashboard",
              "state": "failed",
              "failure": {"reason": "boom", "traceback": "Traceback"}
            }
          ]
        },
        {
          "id": 2,
          "sentence": "Login variants",
          "kind": "outline",
          "steps": [],
          "expansions": [
            {"id": 3, "sentence": "Login variants - row 1", "steps": []}
          ]
        }
      ]
    }
  ]
}`

const yamlTree = `
marker: run-43
suites:
  - id: 1
    path: features/search.feature
    state: passed
    started_at: 2024-01-01T10:00:00Z
    ended_at: 2024-01-01T10:00:01Z
    scenarios:
      - id: 1
        sentence: Search by name
        tags: [smoke]
        background:
          - id: 1
            sentence: Given an index
            state: passed
        steps:
          - id: 2
            sentence: When I search
            state: PASSED
`

func TestDecode_JSON(t *testing.T) {
	run, err := Decode(strings.NewReader(jsonTree), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "run-42", run.Marker)
	require.Len(t, run.Suites, 1)

	suite := run.Suites[0]
	assert.Equal(t, "features/login.feature", suite.Path)
	assert.Equal(t, StateFailed, suite.State)

	d, ok := suite.Duration()
	require.True(t, ok)
	assert.Equal(t, 2500*time.Millisecond, d)

	require.Len(t, suite.Scenarios, 2)
	assert.True(t, suite.Scenarios[1].IsTemplated())
	assert.Len(t, suite.AllScenarios(), 3)

	failed := suite.Scenarios[0].Steps[1]
	assert.Equal(t, StateFailed, failed.State)
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "boom", failed.Failure.Reason)
}

func TestDecode_YAML(t *testing.T) {
	run, err := Decode(strings.NewReader(yamlTree), FormatYAML)
	require.NoError(t, err)

	require.Len(t, run.Suites, 1)
	suite := run.Suites[0]
	assert.Equal(t, StatePassed, suite.State)

	sc := suite.Scenarios[0]
	assert.Equal(t, []string{"smoke"}, sc.Tags)
	assert.Len(t, sc.AllSteps(), 2)
	assert.Equal(t, StatePassed, sc.Steps[0].State)

	d, ok := suite.Duration()
	require.True(t, ok)
	assert.Equal(t, time.Second, d)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{name: "unknown state", input: `{"suites":[{"path":"a","state":"pending"}]}`, format: FormatJSON},
		{name: "unknown field", input: `{"suites":[],"features":[]}`, format: FormatJSON},
		{name: "null suite", input: `{"suites":[null]}`, format: FormatJSON},
		{name: "null step", input: `{"suites":[{"path":"a","scenarios":[{"steps":[null]}]}]}`, format: FormatJSON},
		{name: "invalid yaml", input: "suites: [", format: FormatYAML},
		{name: "unsupported format", input: "{}", format: Format("toml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "results.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonTree), 0o644))

	yamlPath := filepath.Join(dir, "results.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlTree), 0o644))

	run, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "run-42", run.Marker)

	run, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "run-43", run.Marker)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading result tree")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.YAML"))
	assert.Equal(t, FormatYAML, FormatFromPath("tree.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("tree.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("tree"))
}
