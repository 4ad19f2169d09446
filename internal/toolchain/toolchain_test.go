package toolchain_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jitcalc/internal/testutil"
	"github.com/roach88/jitcalc/internal/toolchain"
)

const moduleSource = "int add(int a, int b) { return a + b; }\n"

func driverSource(expr string) string {
	return "#include <stdio.h>\n\nint add(int a, int b);\n\nint main() {\n" +
		"    int result = " + expr + ";\n" +
		"    printf(\"%d\", result);\n    return 0;\n}\n"
}

type fixture struct {
	dir     string
	scripts testutil.ToolScripts
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return fixture{dir: t.TempDir(), scripts: testutil.WriteToolScripts(t)}
}

func (f fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f fixture) write(t *testing.T, name, body string) string {
	t.Helper()
	p := f.path(name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func (f fixture) compiler(timeout time.Duration) *toolchain.Compiler {
	return toolchain.NewCompiler(toolchain.Tool{Path: f.scripts.Compiler, Args: []string{"-S", "-emit-llvm"}}, timeout, nil)
}

func (f fixture) linker(timeout time.Duration) *toolchain.Linker {
	return toolchain.NewLinker(
		toolchain.Tool{Path: f.scripts.Linker, Args: []string{"-S"}},
		toolchain.Tool{Path: f.scripts.Interpreter},
		timeout, nil,
	)
}

func TestCompiler_Lower(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "user_code.c", moduleSource)
	ir := f.path("user_code.ll")

	require.NoError(t, f.compiler(0).Lower(context.Background(), src, ir))

	data, err := os.ReadFile(ir)
	require.NoError(t, err)
	assert.Contains(t, string(data), "int add(int a, int b)")
}

func TestCompiler_LowerFailureCarriesDiagnostic(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "user_code.c", "int add(int a) { return "+testutil.MarkSyntaxError+"; }\n")

	err := f.compiler(0).Lower(context.Background(), src, f.path("user_code.ll"))
	require.Error(t, err)
	assert.True(t, toolchain.IsCompileFailed(err))

	var se *toolchain.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, toolchain.StageCompile, se.Stage)
	assert.Equal(t, 1, se.ExitCode)
	assert.Contains(t, se.Diagnostic, "expected expression")
	assert.Contains(t, err.Error(), "COMPILE_FAILED")
	assert.Contains(t, err.Error(), "expected expression")
}

func TestCompiler_MissingTool(t *testing.T) {
	f := newFixture(t)
	src := f.write(t, "user_code.c", moduleSource)

	c := toolchain.NewCompiler(toolchain.Tool{Path: f.path("no-such-compiler")}, 0, nil)
	err := c.Lower(context.Background(), src, f.path("user_code.ll"))
	require.Error(t, err)
	assert.True(t, toolchain.IsCompileFailed(err))

	var se *toolchain.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, -1, se.ExitCode)
}

func TestLinker_LinkAndRun(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 3", "5"},
		{"6 * 7", "42"},
		{"(10 - 4) / 3", "2"},
		{"0 - 9", "-9"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f := newFixture(t)
			c := f.compiler(0)
			ctx := context.Background()

			mod := f.write(t, "user_code.c", moduleSource)
			drv := f.write(t, "generated.c", driverSource(tt.expr))
			require.NoError(t, c.Lower(ctx, mod, f.path("user_code.ll")))
			require.NoError(t, c.Lower(ctx, drv, f.path("generated.ll")))

			out, err := f.linker(0).LinkAndRun(ctx,
				[]string{f.path("generated.ll"), f.path("user_code.ll")},
				f.path("combined.ll"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Output)
			assert.FileExists(t, f.path("combined.ll"))
		})
	}
}

func TestLinker_LinkFailure(t *testing.T) {
	f := newFixture(t)
	ir := f.write(t, "user_code.ll", "; "+testutil.MarkLinkError+"\n")
	drv := f.write(t, "generated.ll", driverSource("1"))

	_, err := f.linker(0).LinkAndRun(context.Background(), []string{drv, ir}, f.path("combined.ll"))
	require.Error(t, err)
	assert.True(t, toolchain.IsLinkFailed(err))
	assert.Contains(t, err.Error(), "multiply defined")
}

func TestLinker_ExecutionFailure(t *testing.T) {
	f := newFixture(t)
	ir := f.write(t, "user_code.ll", moduleSource)
	drv := f.write(t, "generated.ll", driverSource("1 /* "+testutil.MarkCrash+" */"))

	_, err := f.linker(0).LinkAndRun(context.Background(), []string{drv, ir}, f.path("combined.ll"))
	require.Error(t, err)
	assert.True(t, toolchain.IsExecutionFailed(err))

	var se *toolchain.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, toolchain.StageExecute, se.Stage)
	assert.Equal(t, 134, se.ExitCode)
}

func TestLinker_Timeout(t *testing.T) {
	f := newFixture(t)
	ir := f.write(t, "user_code.ll", moduleSource)
	drv := f.write(t, "generated.ll", driverSource("1 /* "+testutil.MarkHang+" */"))

	start := time.Now()
	_, err := f.linker(200*time.Millisecond).LinkAndRun(context.Background(), []string{drv, ir}, f.path("combined.ll"))
	require.Error(t, err)
	assert.True(t, toolchain.IsTimeout(err))
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Contains(t, err.Error(), "did not finish in time")
}

func TestLinker_NoInputs(t *testing.T) {
	f := newFixture(t)

	_, err := f.linker(0).LinkAndRun(context.Background(), nil, f.path("combined.ll"))
	require.Error(t, err)
	assert.True(t, toolchain.IsLinkFailed(err))
	assert.NoFileExists(t, f.path("combined.ll"))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", toolchain.Code(nil))
	assert.Equal(t, "", toolchain.Code(os.ErrNotExist))
	assert.Equal(t, toolchain.ErrCodeTimeout, toolchain.Code(&toolchain.StageError{Code: toolchain.ErrCodeTimeout}))
}
