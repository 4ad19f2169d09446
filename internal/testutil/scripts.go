package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// Markers recognised by the script toolchain. Placing one in a module or
// expression (inside a C comment, for example) triggers the failure.
const (
	MarkSyntaxError = "SYNTAX_ERROR"
	MarkLinkError   = "LINK_ERROR"
	MarkCrash       = "RUN_CRASH"
	MarkHang        = "RUN_HANG"
)

// ToolScripts holds the paths of shell scripts that imitate a compiler, an
// IR linker and an IR interpreter.
type ToolScripts struct {
	Compiler    string
	Linker      string
	Interpreter string
}

const compilerScript = `#!/bin/sh
out=""
src=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    -*) shift ;;
    *) src="$1"; shift ;;
  esac
done
if grep -q 'SYNTAX_ERROR' "$src"; then
  echo "$src:1:1: error: expected expression" >&2
  exit 1
fi
{ echo "; lowered from $src"; cat "$src"; } > "$out"
`

const linkerScript = `#!/bin/sh
out=""
inputs=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    -*) shift ;;
    *) inputs="$inputs $1"; shift ;;
  esac
done
if grep -q 'LINK_ERROR' $inputs; then
  echo "error: Linking globals named 'f': symbol multiply defined!" >&2
  exit 1
fi
cat $inputs > "$out"
`

const interpreterScript = `#!/bin/sh
f=""
for a in "$@"; do f="$a"; done
if grep -q 'RUN_CRASH' "$f"; then
  echo "Stack dump:" >&2
  exit 134
fi
if grep -q 'RUN_HANG' "$f"; then
  exec sleep 5
fi
expr=$(sed -n 's/^ *int result = \(.*\);$/\1/p' "$f")
printf '%s' "$(( $expr ))"
`

// WriteToolScripts writes the script toolchain into a temporary directory.
// The interpreter evaluates the driver's result expression with shell
// arithmetic, so only integer expressions are supported.
//
// The test is skipped where no POSIX shell is available.
func WriteToolScripts(t *testing.T) ToolScripts {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("script toolchain requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("script toolchain requires sh on PATH")
	}

	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
		return p
	}

	return ToolScripts{
		Compiler:    write("fakecc", compilerScript),
		Linker:      write("fakelink", linkerScript),
		Interpreter: write("fakelli", interpreterScript),
	}
}
