package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/toolchain"
)

func TestLayout(t *testing.T) {
	l := Layout{Root: filepath.Join("a", "b")}

	assert.Equal(t, []string{
		filepath.Join("a", "b", "user_code.c"),
		filepath.Join("a", "b", "user_code.ll"),
		filepath.Join("a", "b", "generated.c"),
		filepath.Join("a", "b", "generated.ll"),
		filepath.Join("a", "b", "combined.ll"),
	}, l.Artifacts())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{usagef("x"), ErrCodeUsage},
		{&IOError{Op: "read", Path: "p", Err: errors.New("boom")}, ErrCodeIO},
		{&extract.OverflowError{Cap: 1}, extract.ErrCodeOverflow},
		{&toolchain.StageError{Code: toolchain.ErrCodeLinkFailed}, toolchain.ErrCodeLinkFailed},
		{errors.New("other"), "ERROR"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err))
	}
}

func TestIOError_Message(t *testing.T) {
	err := &IOError{Op: "copy module", Path: "/tmp/x", Err: errors.New("denied")}
	assert.Equal(t, "IO_ERROR: copy module /tmp/x: denied", err.Error())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "compiled", Compiled.String())
	assert.Equal(t, "State(7)", State(7).String())
}
