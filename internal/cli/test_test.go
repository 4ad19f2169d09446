package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arithmeticScenario = `name: arithmetic
description: Integer expressions through the script toolchain.
module: "int f(int a, int b) { return a + b; }"
steps:
  - op: compile
    expect: { state: compiled }
  - op: evaluate
    expr: 2 + 3
    expect: { output: "5" }
  - op: clean
    expect: { state: uninitialized }
assertions:
  - type: final_state
    state: uninitialized
    artifacts: []
`

const failingScenario = `name: failing
module: "int f(int a, int b) { return a + b; }"
steps:
  - op: compile
  - op: evaluate
    expr: 2 + 3
    expect: { output: "6" }
`

func TestTestCommandMissingArgs(t *testing.T) {
	t.Chdir(t.TempDir())

	res := executeCLI(t, "", "test")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.exitCode())
	assert.Contains(t, res.err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	t.Chdir(t.TempDir())

	res := executeCLI(t, "", "test", "/nonexistent/scenarios")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.exitCode())
	assert.Contains(t, res.err.Error(), "scenarios directory not found")
}

func TestTestCommandInvalidJobs(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.dir, "scenarios"), 0o755))

	res := env.run(t, "", "test", "scenarios", "--jobs", "0")
	assert.Equal(t, ExitCommandError, res.exitCode())
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.dir, "scenarios"), 0o755))

	res := env.run(t, "", "test", "scenarios")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.dir, "scenarios"), 0o755))

	res := env.run(t, "", "test", "scenarios", "--format", "json")
	require.NoError(t, res.err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandPassingScenario(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "scenarios/arithmetic.yaml", arithmeticScenario)

	res := env.run(t, "", "test", "scenarios")
	require.NoError(t, res.err, "stdout: %s", res.stdout)
	assert.Contains(t, res.stdout, "arithmetic")
	assert.Contains(t, res.stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, res.stdout, "All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "scenarios/arithmetic.yaml", arithmeticScenario)
	env.writeFile(t, "scenarios/failing.yaml", failingScenario)

	res := env.run(t, "", "test", "scenarios")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.True(t, IsReported(res.err))
	assert.Contains(t, res.stdout, `expected output "6", got "5"`)
	assert.Contains(t, res.stdout, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandLoadError(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "scenarios/broken.yaml", "name: broken\nsteps: []\n")

	res := env.run(t, "", "test", "scenarios")
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.Contains(t, res.stdout, "broken.yaml")
	assert.Contains(t, res.stdout, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "scenarios/arithmetic.yaml", arithmeticScenario)
	env.writeFile(t, "scenarios/failing.yaml", failingScenario)

	res := env.run(t, "", "test", "scenarios", "--filter", "arith*")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "1 total")
	assert.NotContains(t, res.stdout, "failing")
}

func TestTestCommandGoldenUpdateAndMismatch(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "scenarios/arithmetic.yaml", arithmeticScenario)
	goldenPath := filepath.Join(env.dir, "scenarios", "golden", "arithmetic.golden")

	res := env.run(t, "", "test", "scenarios", "--update")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "arithmetic (golden updated)")
	require.FileExists(t, goldenPath)

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "arithmetic"`)
	assert.Contains(t, string(golden), `"output": "5"`)

	res = env.run(t, "", "test", "scenarios")
	require.NoError(t, res.err, "stdout: %s", res.stdout)

	tampered := strings.Replace(string(golden), `"output": "5"`, `"output": "7"`, 1)
	require.NoError(t, os.WriteFile(goldenPath, []byte(tampered), 0o644))

	res = env.run(t, "", "test", "scenarios")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "Golden file mismatch (run with --update to regenerate)")
}

func TestTestCommandJobsKeepOrder(t *testing.T) {
	env := newCLIEnv(t)
	names := []string{"a_first", "b_second", "c_third"}
	for _, name := range names {
		env.writeFile(t, "scenarios/"+name+".yaml",
			strings.Replace(arithmeticScenario, "name: arithmetic", "name: "+name, 1))
	}

	res := env.run(t, "", "test", "scenarios", "--jobs", "3", "--format", "json")
	require.NoError(t, res.err, "stdout: %s", res.stdout)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 3)
	for i, name := range names {
		assert.Equal(t, name, resp.Data.Scenarios[i].Name)
		assert.True(t, resp.Data.Scenarios[i].Pass)
	}
	assert.Equal(t, 3, resp.Data.Passed)
}

func TestTestCommandFailureJSON(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "scenarios/failing.yaml", failingScenario)

	res := env.run(t, "", "test", "scenarios", "--format", "json")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.exitCode())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "c.txt", "nested/d.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("name: x"), 0o644))
	}

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
	assert.Empty(t, files)
}
