package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/jitcalc/internal/testutil"
)

const addModule = `int f(int a, int b) { return a + b; }

int twice(int x)
{
    return 2 * x;
}
`

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func (r cliResult) exitCode() int {
	return GetExitCode(r.err)
}

// executeCLI runs the root command with args and stdin.
func executeCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// cliEnv runs commands in a fresh working directory against the script
// toolchain.
type cliEnv struct {
	dir   string
	flags []string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	scripts := testutil.WriteToolScripts(t)
	dir := t.TempDir()
	t.Chdir(dir)

	return &cliEnv{
		dir: dir,
		flags: []string{
			"--compiler", scripts.Compiler,
			"--linker", scripts.Linker,
			"--interpreter", scripts.Interpreter,
		},
	}
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	return executeCLI(t, stdin, append(args, e.flags...)...)
}

func (e *cliEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *cliEnv) compile(t *testing.T) {
	t.Helper()
	e.writeFile(t, "module.c", addModule)
	res := e.run(t, "", "compile", "module.c")
	require.NoError(t, res.err, "stderr: %s", res.stderr)
}

func (e *cliEnv) artifact(name string) string {
	return filepath.Join(e.dir, "_generated", name)
}
