package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/jitcalc/internal/driver"
	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/history"
	"github.com/roach88/jitcalc/internal/toolchain"
)

// State is the session's position in its lifecycle.
type State int

const (
	Uninitialized State = iota
	Compiled
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Compiled:
		return "compiled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder receives one journal event per operation. history.Store
// implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Event) error
}

// Options configures Open.
type Options struct {
	// Root is the artifact directory. Required.
	Root string

	// Lowerer compiles the module and every driver.
	// Defaults to clang with no timeout.
	Lowerer toolchain.Lowerer

	// Linker links and runs driver and module IR.
	// Defaults to llvm-link and lli with no timeout.
	Linker toolchain.LinkerExecutor

	// Extractor defaults to a Scanner with the default cap.
	Extractor extract.Extractor

	// Driver shapes the synthesized entry point.
	Driver driver.Options

	// Logger defaults to discarding.
	Logger *slog.Logger

	// Recorder is optional. Recording failures are logged and ignored.
	Recorder Recorder
}

// Session owns one artifact directory.
//
// Thread-safety: all methods are safe for concurrent use; operations run one
// at a time.
type Session struct {
	mu sync.Mutex

	id     string
	layout Layout
	state  State
	closed bool

	lowerer   toolchain.Lowerer
	linker    toolchain.LinkerExecutor
	extractor extract.Extractor
	driver    driver.Options
	logger    *slog.Logger
	recorder  Recorder
}

// Open claims opts.Root and returns a session for it.
//
// The initial state is derived from disk: Compiled when the copied module
// source and its IR are both present, Uninitialized otherwise. Opening a
// root already claimed by another open session is a usage error.
func Open(opts Options) (*Session, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, usagef("session root must not be empty")
	}

	root, err := canonicalRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.Must(uuid.NewV7()).String(),
		layout:    Layout{Root: root},
		lowerer:   opts.Lowerer,
		linker:    opts.Linker,
		extractor: opts.Extractor,
		driver:    opts.Driver,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("session", s.id)
	if s.lowerer == nil {
		s.lowerer = toolchain.NewCompiler(toolchain.DefaultCompiler, 0, s.logger)
	}
	if s.linker == nil {
		s.linker = toolchain.NewLinker(toolchain.DefaultLinker, toolchain.DefaultInterpreter, 0, s.logger)
	}
	if s.extractor == nil {
		s.extractor = extract.NewScanner(0)
	}

	if err := claimRoot(root, s.id); err != nil {
		return nil, err
	}

	if isFile(s.layout.ModuleSource()) && isFile(s.layout.ModuleIR()) {
		s.state = Compiled
	}
	s.logger.Debug("session opened", "root", root, "state", s.state)

	return s, nil
}

// Close releases the root. Further operations fail with a usage error.
// Artifacts are left in place; a later Open of the same root resumes them.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	releaseRoot(s.layout.Root, s.id)
	s.logger.Debug("session closed")
	return nil
}

// ID returns the session's process-unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Root returns the absolute artifact directory.
func (s *Session) Root() string {
	return s.layout.Root
}

// Layout returns the artifact paths.
func (s *Session) Layout() Layout {
	return s.layout
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Compile captures the module at modulePath and lowers it.
//
// An existing artifact directory is cleaned first. If the module cannot be
// read nothing is touched and the state is unchanged; once the directory has
// been replaced any failure leaves the session Uninitialized.
func (s *Session) Compile(ctx context.Context, modulePath string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}

	src, err := os.ReadFile(modulePath)
	if err != nil {
		return &IOError{Op: "read module", Path: modulePath, Err: err}
	}

	defer func() {
		s.record(ctx, history.Event{
			Kind:         history.KindCompile,
			ModuleDigest: history.ModuleDigest(src),
		}, err)
	}()

	s.state = Uninitialized

	if err := s.ensureRoot(); err != nil {
		return err
	}

	if err := os.WriteFile(s.layout.ModuleSource(), src, 0o644); err != nil {
		return &IOError{Op: "copy module", Path: s.layout.ModuleSource(), Err: err}
	}
	s.logger.Debug("module copied", "from", modulePath, "to", s.layout.ModuleSource(), "bytes", len(src))

	if err := s.lowerer.Lower(ctx, s.layout.ModuleSource(), s.layout.ModuleIR()); err != nil {
		// A failed or interrupted lower may leave a partial IR behind; Open
		// would otherwise read it as a compiled module.
		if rmErr := os.Remove(s.layout.ModuleIR()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.Warn("failed to remove partial module IR", "path", s.layout.ModuleIR(), "error", rmErr)
		}
		return err
	}

	s.state = Compiled
	s.logger.Debug("state transition", "to", s.state)
	return nil
}

// ensureRoot creates the artifact directory. A directory left behind by an
// earlier run is cleaned and creation retried once.
func (s *Session) ensureRoot() error {
	root := s.layout.Root

	if err := os.MkdirAll(filepath.Dir(root), 0o755); err != nil {
		return &IOError{Op: "create parent of", Path: root, Err: err}
	}

	err := os.Mkdir(root, 0o755)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return &IOError{Op: "create artifact directory", Path: root, Err: err}
	}

	s.logger.Debug("artifact directory exists, cleaning", "root", root)
	if err := s.removeArtifacts(); err != nil {
		return err
	}
	if err := os.Mkdir(root, 0o755); err != nil {
		return &IOError{Op: "create artifact directory", Path: root, Err: err}
	}
	return nil
}

// Evaluate runs expression against the compiled module and returns the
// program's standard output. It never changes the state except to downgrade
// to Uninitialized when the module artifacts have disappeared from disk.
func (s *Session) Evaluate(ctx context.Context, expression string) (output string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return "", err
	}
	if err := s.requireCompiled("evaluate"); err != nil {
		return "", err
	}
	if strings.TrimSpace(expression) == "" {
		return "", usagef("expression must not be empty")
	}

	src, err := os.ReadFile(s.layout.ModuleSource())
	if err != nil {
		return "", &IOError{Op: "read module copy", Path: s.layout.ModuleSource(), Err: err}
	}

	defer func() {
		s.record(ctx, history.Event{
			Kind:         history.KindEvaluate,
			ModuleDigest: history.ModuleDigest(src),
			Expression:   expression,
			Output:       output,
		}, err)
	}()

	set, err := s.extractor.Extract(string(src))
	if err != nil {
		return "", err
	}
	s.logger.Debug("signatures extracted", "count", len(set))

	unit := driver.Synthesize(set, expression, s.driver)
	if err := os.WriteFile(s.layout.DriverSource(), []byte(unit), 0o644); err != nil {
		return "", &IOError{Op: "write driver", Path: s.layout.DriverSource(), Err: err}
	}

	if err := s.lowerer.Lower(ctx, s.layout.DriverSource(), s.layout.DriverIR()); err != nil {
		return "", err
	}

	outcome, err := s.linker.LinkAndRun(ctx,
		[]string{s.layout.DriverIR(), s.layout.ModuleIR()},
		s.layout.LinkedIR(),
	)
	if err != nil {
		return "", err
	}

	s.logger.Debug("expression evaluated", "expression", expression, "duration", outcome.Duration)
	return outcome.Output, nil
}

// Clean removes every artifact and the directory, leaving the session
// Uninitialized. Cleaning an absent directory succeeds.
//
// A file that cannot be removed is logged and skipped; failing to remove
// the directory itself is an error.
func (s *Session) Clean(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}

	defer func() {
		s.record(ctx, history.Event{Kind: history.KindClean}, err)
	}()

	if err := s.removeArtifacts(); err != nil {
		return err
	}
	s.state = Uninitialized
	s.logger.Debug("cleaned generated files", "root", s.layout.Root)
	return nil
}

// removeArtifacts deletes the five artifact files, then the directory.
func (s *Session) removeArtifacts() error {
	root := s.layout.Root

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		s.state = Uninitialized
		return nil
	}
	if err != nil {
		return &IOError{Op: "inspect artifact directory", Path: root, Err: err}
	}
	if !info.IsDir() {
		return &IOError{Op: "clean", Path: root, Err: errors.New("not a directory")}
	}

	s.state = Uninitialized

	for _, p := range s.layout.Artifacts() {
		err := os.Remove(p)
		switch {
		case err == nil:
			s.logger.Debug("artifact removed", "path", p)
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Debug("artifact already absent", "path", p)
		default:
			s.logger.Warn("failed to remove artifact", "path", p, "error", err)
		}
	}

	if err := os.Remove(root); err != nil {
		return &IOError{Op: "remove artifact directory", Path: root, Err: err}
	}
	return nil
}

// Signatures extracts the signature set of the persisted module copy.
func (s *Session) Signatures() (extract.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := s.requireCompiled("list signatures"); err != nil {
		return nil, err
	}
	return s.signatures()
}

func (s *Session) signatures() (extract.Set, error) {
	src, err := os.ReadFile(s.layout.ModuleSource())
	if err != nil {
		return nil, &IOError{Op: "read module copy", Path: s.layout.ModuleSource(), Err: err}
	}
	return s.extractor.Extract(string(src))
}

// Driver returns the driver that Evaluate would build for expression,
// without writing or running anything.
func (s *Session) Driver(expression string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return "", err
	}
	if err := s.requireCompiled("synthesize a driver"); err != nil {
		return "", err
	}
	set, err := s.signatures()
	if err != nil {
		return "", err
	}
	return driver.Synthesize(set, expression, s.driver), nil
}

func (s *Session) usable() error {
	if s.closed {
		return usagef("session is closed")
	}
	return nil
}

// requireCompiled fails unless the session is Compiled and both module
// artifacts are still on disk.
func (s *Session) requireCompiled(op string) error {
	if s.state != Compiled {
		return usagef("cannot %s: no compiled module, run compile first", op)
	}
	if !isFile(s.layout.ModuleSource()) || !isFile(s.layout.ModuleIR()) {
		s.state = Uninitialized
		s.logger.Warn("compiled module artifacts disappeared", "root", s.layout.Root)
		return usagef("cannot %s: compiled module artifacts are missing from %s, run compile again", op, s.layout.Root)
	}
	return nil
}

// record journals one operation. Failures are logged, never returned.
func (s *Session) record(ctx context.Context, e history.Event, opErr error) {
	if s.recorder == nil {
		return
	}
	e.Root = s.layout.Root
	e.SessionID = s.id
	if opErr != nil {
		e.ErrorCode = ErrorCode(opErr)
		e.ErrorMessage = opErr.Error()
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("failed to record history", "kind", e.Kind, "error", err)
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
