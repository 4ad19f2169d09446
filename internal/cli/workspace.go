package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/jitcalc/internal/config"
	"github.com/roach88/jitcalc/internal/extract"
	"github.com/roach88/jitcalc/internal/harness"
	"github.com/roach88/jitcalc/internal/history"
	"github.com/roach88/jitcalc/internal/session"
	"github.com/roach88/jitcalc/internal/toolchain"
)

// buildToolchain assembles the exec-backed toolchain described by cfg.
func buildToolchain(cfg *config.Config, logger *slog.Logger) harness.Toolchain {
	return harness.Toolchain{
		Lowerer:       toolchain.NewCompiler(cfg.Compiler.Tool(), cfg.Timeout, logger),
		Linker:        toolchain.NewLinker(cfg.Linker.Tool(), cfg.Interpreter.Tool(), cfg.Timeout, logger),
		MaxSignatures: cfg.MaxSignatures,
		Driver:        cfg.Driver.Options(),
		Logger:        logger,
	}
}

// openJournal opens the evaluation journal, creating its directory.
func openJournal(path string) (*history.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	return history.Open(path)
}

// workspace is an open session plus its journal, if one is configured.
type workspace struct {
	sess    *session.Session
	journal *history.Store
}

// openWorkspace opens a session on the configured root. A journal that
// cannot be opened is logged and skipped; the session works without it.
func openWorkspace(opts *RootOptions) (*workspace, error) {
	cfg := opts.config()
	logger := opts.logger()
	tc := buildToolchain(cfg, logger)

	sessOpts := session.Options{
		Root:      cfg.Root,
		Lowerer:   tc.Lowerer,
		Linker:    tc.Linker,
		Extractor: extract.NewScanner(tc.MaxSignatures),
		Driver:    tc.Driver,
		Logger:    logger,
	}

	ws := &workspace{}
	if cfg.History.Enabled() {
		journal, err := openJournal(cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
		} else {
			ws.journal = journal
			sessOpts.Recorder = journal
		}
	}

	sess, err := session.Open(sessOpts)
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.sess = sess
	return ws, nil
}

// Close releases the session and the journal.
func (w *workspace) Close() {
	if w.sess != nil {
		_ = w.sess.Close()
	}
	if w.journal != nil {
		_ = w.journal.Close()
	}
}
