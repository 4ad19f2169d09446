package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileEvaluateClean(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "module.c", addModule)

	res := env.run(t, "", "compile", "module.c")
	require.NoError(t, res.err, "stderr: %s", res.stderr)
	assert.Contains(t, res.stdout, "Compiled module.c into")
	assert.FileExists(t, env.artifact("user_code.c"))
	assert.FileExists(t, env.artifact("user_code.ll"))

	res = env.run(t, "", "evaluate", "2 + 3")
	require.NoError(t, res.err, "stderr: %s", res.stderr)
	assert.Equal(t, "5\n", res.stdout)
	assert.FileExists(t, env.artifact("combined.ll"))

	// Arguments are joined into one expression
	res = env.run(t, "", "evaluate", "6", "*", "7")
	require.NoError(t, res.err)
	assert.Equal(t, "42\n", res.stdout)

	res = env.run(t, "", "clean")
	require.NoError(t, res.err)
	assert.Equal(t, "Cleaned generated files.\n", res.stdout)
	assert.NoDirExists(t, filepath.Join(env.dir, "_generated"))

	// clean is idempotent
	res = env.run(t, "", "clean")
	require.NoError(t, res.err)
}

func TestCompileMissingArgs(t *testing.T) {
	t.Chdir(t.TempDir())

	res := executeCLI(t, "", "compile")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.exitCode())
	assert.Contains(t, res.err.Error(), "accepts 1 arg")
}

func TestCompileMissingModule(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "", "compile", "missing.c")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.True(t, IsReported(res.err))
	assert.Contains(t, res.stderr, "IO_ERROR")
}

func TestCompileFailure(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "module.c", "int f(void) { return /* SYNTAX_ERROR */ 1; }\n")

	res := env.run(t, "", "compile", "module.c")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.Contains(t, res.stderr, "COMPILE_FAILED")
	assert.Contains(t, res.stderr, "expected expression")

	// The session stays uninitialized
	res = env.run(t, "", "evaluate", "1 + 1")
	assert.Equal(t, ExitCommandError, res.exitCode())
}

func TestEvaluateBeforeCompile(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "", "evaluate", "2 + 3")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, res.exitCode())
	assert.True(t, IsReported(res.err))
	assert.Contains(t, res.stderr, "USAGE_ERROR")
	assert.Empty(t, res.stdout)
	assert.NoDirExists(t, filepath.Join(env.dir, "_generated"))
}

func TestEvaluateFailuresKeepSessionCompiled(t *testing.T) {
	env := newCLIEnv(t)
	env.compile(t)

	res := env.run(t, "", "evaluate", "1 /* SYNTAX_ERROR */")
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.Contains(t, res.stderr, "COMPILE_FAILED")

	res = env.run(t, "", "evaluate", "1 /* RUN_CRASH */")
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.Contains(t, res.stderr, "EXECUTION_FAILED")

	res = env.run(t, "", "evaluate", "1 /* LINK_ERROR */")
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.Contains(t, res.stderr, "LINK_FAILED")

	res = env.run(t, "", "evaluate", "2 + 3")
	require.NoError(t, res.err, "stderr: %s", res.stderr)
	assert.Equal(t, "5\n", res.stdout)
}

func TestEvaluateTimeout(t *testing.T) {
	env := newCLIEnv(t)
	env.compile(t)

	res := env.run(t, "", "evaluate", "1 /* RUN_HANG */", "--timeout", "300ms")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.Contains(t, res.stderr, "TOOLCHAIN_TIMEOUT")
}

func TestEvaluateOverflow(t *testing.T) {
	env := newCLIEnv(t)
	env.compile(t)

	res := env.run(t, "", "evaluate", "2 + 3", "--max-signatures", "1")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, res.exitCode())
	assert.Contains(t, res.stderr, "EXTRACTION_OVERFLOW")
	assert.NoFileExists(t, env.artifact("generated.c"))
}

func TestJSONOutput(t *testing.T) {
	env := newCLIEnv(t)
	env.writeFile(t, "module.c", addModule)

	res := env.run(t, "", "compile", "module.c", "--format", "json")
	require.NoError(t, res.err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "compiled", data["state"])

	res = env.run(t, "", "evaluate", "2 + 3", "--format", "json")
	require.NoError(t, res.err)
	resp = CLIResponse{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	data, ok = resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2 + 3", data["expression"])
	assert.Equal(t, "5", data["output"])

	res = env.run(t, "", "evaluate", "1 /* RUN_CRASH */", "--format", "json")
	require.Error(t, res.err)
	resp = CLIResponse{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EXECUTION_FAILED", resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "execute", details["stage"])
	assert.EqualValues(t, 134, details["exit_code"])
}

func TestSignaturesCommand(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run(t, "", "signatures")
	assert.Equal(t, ExitCommandError, res.exitCode())

	env.compile(t)

	res = env.run(t, "", "signatures")
	require.NoError(t, res.err)
	assert.Equal(t, "int f(int a, int b);\nint twice(int x);\n", res.stdout)

	res = env.run(t, "", "signatures", "--format", "json")
	require.NoError(t, res.err)
	var resp struct {
		Status string          `json:"status"`
		Data   []SignatureInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "f", resp.Data[0].Name)
	assert.Equal(t, 1, resp.Data[0].Line)
	assert.Equal(t, "int twice(int x);", resp.Data[1].Declaration)
	assert.Equal(t, 3, resp.Data[1].Line)
	assert.Equal(t, strings.Index(addModule, "int twice"), resp.Data[1].Offset)
}
