// Package engine implements EngineFactory + SessionApi (spec.md §4.14):
// it wires every other package into one running instance — the shared
// SQLite connection, the Truth/False/Zero constant lifecycle, builtin
// and default theory seeding — and exposes SessionApi's seven DSL
// entry points.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"spock/internal/config"
	"spock/internal/exec"
	"spock/internal/logging"
	"spock/internal/planner"
	"spock/internal/primitives"
	"spock/internal/session"
	"spock/internal/symbolic"
	"spock/internal/theorystore"
	"spock/internal/vectorspace"
	"spock/internal/versioning"
)

// ErrFolderAccess is raised when the working folder or its truth.bin
// dump cannot be read or written (spec.md §7 FolderAccessError).
var ErrFolderAccess = errors.New("engine: folder access error")

// Options customizes createEngine beyond config file/env defaults.
// Explicit fields here win over environment variables, which win over
// config-file/compiled-in defaults (spec.md §6).
type Options struct {
	ConfigPath      string
	Config          *config.Config // takes precedence over ConfigPath if set
	DefaultTheories []string       // theory names loaded at startup (CreateEngine fails if one cannot be loaded); not overlaid onto sessions
}

// Engine is one running instance: the shared vector space, the
// canonical Truth/False/Zero constants, the theory store, the planner,
// the executor, and the shared SQLite connection backing both the
// versioning lineage index and the session vector cache.
type Engine struct {
	cfg   *config.Config
	space *vectorspace.Space

	truth, false_, zero vectorspace.Vector

	store    *theorystore.Store
	planner  *planner.Planner
	executor *exec.Executor
	lineage  *versioning.Manager
	index    *session.SQLiteVectorIndex
	symbolic *symbolic.Engine

	db *sql.DB

	globals map[string]session.TypedValue
}

// CreateEngine validates configuration, ensures the working folder
// exists, loads or generates Truth, derives False and Zero, seeds
// built-in theories, loads any caller-specified default theories, and
// opens the shared SQLite connection (spec.md §4.14).
func CreateEngine(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.WorkingFolder, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	if err := logging.Initialize(cfg.WorkingFolder, string(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}

	space := vectorspace.NewSpace(cfg.Dimensions, cfg.NumericType, cfg.VectorGeneration, cfg.RandomSeed)

	truth, err := loadOrCreateTruth(filepath.Join(cfg.WorkingFolder, "truth.bin"), space, cfg)
	if err != nil {
		return nil, err
	}
	false_ := vectorspace.Normalise(primitives.Negate(truth))
	zero := space.Create()

	store, err := theorystore.New(cfg.TheoriesPath)
	if err != nil {
		return nil, err
	}
	if err := theorystore.SeedBuiltins(store); err != nil {
		_ = store.Close()
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.WorkingFolder, "engine.db"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}

	lineage, err := versioning.NewManager(db)
	if err != nil {
		return nil, multierr.Combine(err, db.Close(), store.Close())
	}
	if err := lineage.RebuildFromStore(store); err != nil {
		return nil, multierr.Combine(err, db.Close(), store.Close())
	}

	index, err := session.NewSQLiteVectorIndex(db, "global_vectors", cfg.Dimensions)
	if err != nil {
		return nil, multierr.Combine(err, db.Close(), store.Close())
	}

	var symEngine *symbolic.Engine
	if cfg.SymbolicCrossCheck {
		symEngine, err = symbolic.New()
		if err != nil {
			return nil, multierr.Combine(err, db.Close(), store.Close())
		}
	}

	p := planner.New(space, cfg)
	executor := exec.New(store, lineage, p, space, cfg)

	globals := map[string]session.TypedValue{
		"Truth": session.VectorValue(truth),
		"False": session.VectorValue(false_),
		"Zero":  session.VectorValue(zero),
	}

	e := &Engine{
		cfg:      cfg,
		space:    space,
		truth:    truth,
		false_:   false_,
		zero:     zero,
		store:    store,
		planner:  p,
		executor: executor,
		lineage:  lineage,
		index:    index,
		symbolic: symEngine,
		db:       db,
		globals:  globals,
	}

	var seedErr error
	for _, name := range opts.DefaultTheories {
		if _, err := e.LoadTheory(name); err != nil {
			seedErr = multierr.Append(seedErr, fmt.Errorf("engine: loading default theory %q: %w", name, err))
		}
	}
	if seedErr != nil {
		return nil, multierr.Combine(seedErr, e.shutdownInternal())
	}

	logging.Engine("engine started: dimensions=%d workingFolder=%s", cfg.Dimensions, cfg.WorkingFolder)
	return e, nil
}

// CreateSession builds a session seeded with the engine's global
// constants and, optionally, a set of theories overlaid in the order
// given (spec.md §4.7).
func (e *Engine) CreateSession(initialTheories ...string) (*session.Session, error) {
	sess := session.New(e.cfg, e.globals).WithVectorIndex(e.index)
	for _, name := range initialTheories {
		if _, err := versioning.UseTheory(sess, e.store, name); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// LoadTheory loads and returns a theory descriptor without attaching it
// to any session.
func (e *Engine) LoadTheory(name string) (*theorystore.Descriptor, error) {
	return e.store.Load(name)
}

// ListTheories returns every theory name persisted in this engine's
// working folder.
func (e *Engine) ListTheories() ([]string, error) {
	return e.store.List()
}

// GetConfig returns the engine's effective configuration.
func (e *Engine) GetConfig() *config.Config { return e.cfg }

// TheoryStore exposes the engine's shared theory store for callers
// (cmd/spock's theory subcommands) that need direct save/branch/merge
// access beyond what CreateSession/LoadTheory offer.
func (e *Engine) TheoryStore() *theorystore.Store { return e.store }

// Lineage exposes the engine's versioning lineage index for callers
// (cmd/spock's theory subcommands, versioning.BranchTheory/MergeTheory/
// Remember) that need to record or query ancestry beyond what
// CreateSession/LoadTheory offer.
func (e *Engine) Lineage() *versioning.Manager { return e.lineage }

// IsAncestor reports whether ancestorVersionID appears anywhere in
// versionID's parent chain, per the engine's lineage index
// (SPEC_FULL.md §6.3).
func (e *Engine) IsAncestor(ctx context.Context, ancestorVersionID, versionID string) (bool, error) {
	return e.lineage.IsAncestor(ctx, ancestorVersionID, versionID)
}

// VersionsAfter returns the version ids of every theory version
// recorded strictly after t, ordered oldest to newest.
func (e *Engine) VersionsAfter(ctx context.Context, t time.Time) ([]string, error) {
	return e.lineage.VersionsAfter(ctx, t)
}

// GetGlobalSymbols returns the engine's canonical constants
// (Truth/False/Zero).
func (e *Engine) GetGlobalSymbols() map[string]session.TypedValue { return e.globals }

// Shutdown releases the engine's held resources (theory store watcher,
// shared SQLite connection). Call it once: the theory store's Close
// closes its watcher's done channel, so a second Shutdown panics.
func (e *Engine) Shutdown() error {
	return e.shutdownInternal()
}

func (e *Engine) shutdownInternal() error {
	var err error
	if e.store != nil {
		err = multierr.Append(err, e.store.Close())
	}
	if e.db != nil {
		err = multierr.Append(err, e.db.Close())
	}
	logging.EngineDebug("engine shut down")
	logging.CloseAll()
	return err
}
