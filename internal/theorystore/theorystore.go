// Package theorystore implements TheoryStore (spec.md §4.8): theory
// persistence, directory layout, descriptor caching, and the shipped
// BaseLogic theory.
package theorystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"spock/internal/logging"
	"spock/internal/parse"
	"spock/internal/session"
	"spock/internal/token"
)

// Sentinel errors from the §7 taxonomy this package is responsible for.
var (
	ErrTheoryNotFound = errors.New("theorystore: theory not found")
	ErrTheoryBusy     = errors.New("theorystore: theory busy")
	ErrFolderAccess   = errors.New("theorystore: folder access error")
)

// Descriptor is a persisted, named theory: source text, parsed AST,
// cached symbol bindings, and version lineage metadata. It implements
// session.Overlay so it can be pushed directly onto a session's stack.
type Descriptor struct {
	Name            string
	Source          string
	AST             *parse.Script
	Symbols         map[string]session.TypedValue
	VersionID       string
	ParentVersionID string
	MergedFrom      []string
	CreatedAt       time.Time
}

func (d *Descriptor) OverlayName() string { return d.Name }

func (d *Descriptor) OverlaySymbols() map[string]session.TypedValue {
	return d.Symbols
}

func (d *Descriptor) OverlayMacros() map[string]parse.Macro {
	out := make(map[string]parse.Macro)
	for _, m := range d.AST.Macros {
		if m.Kind == parse.KindVerb {
			out[strings.TrimPrefix(m.Name, "@")] = m
		}
	}
	return out
}

type metadata struct {
	VersionID       string    `yaml:"versionId"`
	ParentVersionID string    `yaml:"parentVersionId,omitempty"`
	MergedFrom      []string  `yaml:"mergedFrom,omitempty"`
	CreatedAt       time.Time `yaml:"createdAt"`
}

// Store owns the on-disk theory directory, an immutable descriptor
// cache invalidated by fsnotify, and per-name write locks.
type Store struct {
	dir string

	mu        sync.RWMutex
	cache     map[string]*Descriptor
	writeLock map[string]*sync.Mutex
	group     singleflight.Group

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New opens (creating if needed) the theory store rooted at dir and
// starts a background fsnotify watcher that invalidates cached
// descriptors when their files change externally.
func New(dir string) (*Store, error) {
	s := &Store{
		dir:       dir,
		cache:     make(map[string]*Descriptor),
		writeLock: make(map[string]*sync.Mutex),
		done:      make(chan struct{}),
	}
	if err := s.EnsureDirectory(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	s.watcher = watcher
	go s.watchLoop()

	return s, nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(filepath.Dir(event.Name))
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.invalidate(name)
				logging.TheoryStoreDebug("cache invalidated for %q (fsnotify %s)", name, event.Op)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.TheoryStoreError("fsnotify watcher error: %v", err)
		}
	}
}

func (s *Store) invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// Close stops the background watcher.
func (s *Store) Close() error {
	close(s.done)
	return s.watcher.Close()
}

// EnsureDirectory creates the theory directory if it does not exist.
func (s *Store) EnsureDirectory() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	return nil
}

func (s *Store) theoryDir(name string) string  { return filepath.Join(s.dir, name) }
func (s *Store) sourcePath(name string) string { return filepath.Join(s.theoryDir(name), "theory.dsl") }
func (s *Store) metaPath(name string) string   { return filepath.Join(s.theoryDir(name), "meta.yaml") }

func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.writeLock[name]
	if !ok {
		l = &sync.Mutex{}
		s.writeLock[name] = l
	}
	return l
}

// Save writes source under name, parsing it first, and returns the new
// descriptor. Concurrent saves to the same name fail fast with
// ErrTheoryBusy rather than blocking (spec.md §5 "exclusive writer lock").
func (s *Store) Save(name, source string) (*Descriptor, error) {
	return s.save(name, source, "", nil)
}

// SaveBranch saves source under name recording parentVersionID as the
// branch's lineage parent (used by internal/versioning.BranchTheory).
func (s *Store) SaveBranch(name, source, parentVersionID string) (*Descriptor, error) {
	return s.save(name, source, parentVersionID, nil)
}

// SaveMerge saves source under name recording mergedFrom as the set of
// version ids that contributed to it (used by internal/versioning.MergeTheory).
func (s *Store) SaveMerge(name, source string, mergedFrom []string) (*Descriptor, error) {
	return s.save(name, source, "", mergedFrom)
}

func (s *Store) save(name, source, parentVersionID string, mergedFrom []string) (*Descriptor, error) {
	lock := s.lockFor(name)
	if !lock.TryLock() {
		return nil, fmt.Errorf("%w: %q", ErrTheoryBusy, name)
	}
	defer lock.Unlock()

	ast, err := parse.Parse(token.Tokenize(source))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.theoryDir(name), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	if err := os.WriteFile(s.sourcePath(name), []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}

	meta := metadata{
		VersionID:       newVersionID(),
		ParentVersionID: parentVersionID,
		MergedFrom:      mergedFrom,
		CreatedAt:       time.Now(),
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("theorystore: marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(name), data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}

	desc := &Descriptor{
		Name:            name,
		Source:          source,
		AST:             ast,
		Symbols:         make(map[string]session.TypedValue),
		VersionID:       meta.VersionID,
		ParentVersionID: meta.ParentVersionID,
		MergedFrom:      meta.MergedFrom,
		CreatedAt:       meta.CreatedAt,
	}

	s.mu.Lock()
	s.cache[name] = desc
	s.mu.Unlock()

	logging.TheoryStore("saved theory %q version=%s", name, desc.VersionID)
	return desc, nil
}

// Load returns the descriptor for name, reading from disk (and caching)
// on a cold cache. Concurrent loads of the same name are collapsed via
// singleflight so a hot theory is parsed at most once under load.
func (s *Store) Load(name string) (*Descriptor, error) {
	s.mu.RLock()
	if d, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return d, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do(name, func() (interface{}, error) {
		return s.loadFromDisk(name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

func (s *Store) loadFromDisk(name string) (*Descriptor, error) {
	source, err := os.ReadFile(s.sourcePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrTheoryNotFound, name)
		}
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}

	ast, err := parse.Parse(token.Tokenize(string(source)))
	if err != nil {
		return nil, err
	}

	var meta metadata
	if metaBytes, err := os.ReadFile(s.metaPath(name)); err == nil {
		if err := yaml.Unmarshal(metaBytes, &meta); err != nil {
			return nil, fmt.Errorf("theorystore: parse metadata for %q: %w", name, err)
		}
	}

	desc := &Descriptor{
		Name:            name,
		Source:          string(source),
		AST:             ast,
		Symbols:         make(map[string]session.TypedValue),
		VersionID:       meta.VersionID,
		ParentVersionID: meta.ParentVersionID,
		MergedFrom:      meta.MergedFrom,
		CreatedAt:       meta.CreatedAt,
	}

	s.mu.Lock()
	s.cache[name] = desc
	s.mu.Unlock()

	logging.TheoryStoreDebug("loaded theory %q from disk", name)
	return desc, nil
}

// Exists reports whether a theory named name has been saved.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.sourcePath(name))
	return err == nil
}

// List returns the names of every saved theory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Delete removes a theory's directory and invalidates its cache entry.
func (s *Store) Delete(name string) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.theoryDir(name)); err != nil {
		return fmt.Errorf("%w: %v", ErrFolderAccess, err)
	}
	s.invalidate(name)
	return nil
}
