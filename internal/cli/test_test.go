package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failingScenario = `name: wrong_count
schema: ../schema.yaml
entity: order
steps:
  - op: save
    data: {status: pending}
  - op: query
    method: countByStatus
    args: [pending]
    expect:
      count: 2
`

// scenarioDir copies the shared schema next to a fresh scenarios directory.
func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	schemaData, err := os.ReadFile(filepath.Join("testdata", "schema.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "schema.yaml"), schemaData, 0o600))

	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.Mkdir(dir, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestTestCommand_Passes(t *testing.T) {
	out, err := execute(t, "test", filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ shipping")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_Fails(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"wrong_count.yaml": failingScenario})

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Equal(t, []string{"step 2 (query): count: expected 2, got 1"}, resp.Data.Scenarios[0].Errors)
}

func TestTestCommand_Filter(t *testing.T) {
	shipping, err := os.ReadFile(filepath.Join("testdata", "scenarios", "shipping.yaml"))
	require.NoError(t, err)
	dir := scenarioDir(t, map[string]string{
		"shipping.yaml":    string(shipping),
		"wrong_count.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir, "--filter", "ship*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "wrong_count")
}

func TestTestCommand_GoldenUpdateAndCompare(t *testing.T) {
	shipping, err := os.ReadFile(filepath.Join("testdata", "scenarios", "shipping.yaml"))
	require.NoError(t, err)
	dir := scenarioDir(t, map[string]string{"shipping.yaml": string(shipping)})

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ shipping (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "shipping.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario":"shipping"`)

	_, err = execute(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario":"shipping","trace":[]}`), 0o600))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_MissingPath(t *testing.T) {
	_, err := execute(t, "test", filepath.Join("testdata", "nowhere"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_BadScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\nsteps: []\n"})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}
