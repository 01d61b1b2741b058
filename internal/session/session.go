package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"spock/internal/config"
	"spock/internal/logging"
	"spock/internal/parse"
)

// Overlay is the subset of a theory descriptor the session resolver
// needs: its symbol table, its verb-macro table, and a name for
// diagnostics. theorystore.Descriptor implements this; session does not
// import theorystore to avoid a cycle (theories are consulted through
// the session, not the other way around).
type Overlay interface {
	OverlayName() string
	OverlaySymbols() map[string]TypedValue
	OverlayMacros() map[string]parse.Macro
}

// Session is a running execution context: local symbols, an ordered
// overlay stack (LIFO), and shared global constants (spec.md §3, §4.7).
type Session struct {
	ID string

	mu         sync.RWMutex
	local      map[string]TypedValue
	localMacro map[string]parse.Macro
	overlays   []Overlay // index 0 = oldest; last element = newest, consulted first
	global     map[string]TypedValue
	config     *config.Config
	index      VectorIndex
}

// New creates a session seeded with the engine's global constants.
func New(cfg *config.Config, global map[string]TypedValue) *Session {
	return &Session{
		ID:         uuid.NewString(),
		local:      make(map[string]TypedValue),
		localMacro: make(map[string]parse.Macro),
		global:     global,
		config:     cfg,
	}
}

// WithVectorIndex attaches an optional nearest-neighbor index (spec.md
// SPEC_FULL §6.2); nil disables NearestSymbols.
func (s *Session) WithVectorIndex(idx VectorIndex) *Session {
	s.index = idx
	return s
}

func bare(name string) string {
	return strings.TrimPrefix(strings.TrimPrefix(name, "@"), "$")
}

// Resolve looks up name through local -> overlays (newest first) ->
// global, in that order (spec.md §4.7). It does not auto-generate
// unknown bare identifiers; that responsibility belongs to the executor.
func (s *Session) Resolve(name string) (TypedValue, bool) {
	key := bare(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.local[key]; ok {
		return v, true
	}
	for i := len(s.overlays) - 1; i >= 0; i-- {
		if v, ok := s.overlays[i].OverlaySymbols()[key]; ok {
			return v, true
		}
	}
	if v, ok := s.global[key]; ok {
		return v, true
	}
	return TypedValue{}, false
}

// ResolveMacro looks up a verb macro by name through the same
// local -> overlay precedence as Resolve.
func (s *Session) ResolveMacro(name string) (parse.Macro, bool) {
	key := bare(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.localMacro[key]; ok {
		return m, true
	}
	for i := len(s.overlays) - 1; i >= 0; i-- {
		if m, ok := s.overlays[i].OverlayMacros()[key]; ok {
			return m, true
		}
	}
	return parse.Macro{}, false
}

// SetSymbol always writes to the local map, shadowing any overlay of the
// same name.
func (s *Session) SetSymbol(name string, val TypedValue) {
	key := bare(name)
	s.mu.Lock()
	s.local[key] = val
	s.mu.Unlock()
	logging.SessionDebug("session %s: set local symbol %q (%s)", s.ID, key, val.Kind)

	if s.index != nil && val.Kind == KindVector {
		if err := s.index.Upsert(key, val.Vector); err != nil {
			logging.SessionDebug("session %s: vector index upsert failed for %q: %v", s.ID, key, err)
		}
	}
}

// RegisterVerbMacro installs a verb macro into the session's local
// macro table (executor registration of top-level verb macros).
func (s *Session) RegisterVerbMacro(m parse.Macro) {
	key := bare(m.Name)
	s.mu.Lock()
	s.localMacro[key] = m
	s.mu.Unlock()
}

// OverlayTheory pushes a theory overlay onto the LIFO stack.
func (s *Session) OverlayTheory(ov Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays = append(s.overlays, ov)
	logging.SessionDebug("session %s: overlaid theory %q", s.ID, ov.OverlayName())
}

// PopOverlay removes and returns the newest overlay.
func (s *Session) PopOverlay() (Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.overlays) == 0 {
		return nil, false
	}
	ov := s.overlays[len(s.overlays)-1]
	s.overlays = s.overlays[:len(s.overlays)-1]
	return ov, true
}

// Config returns the session's configuration bundle.
func (s *Session) Config() *config.Config { return s.config }

// LocalSymbols returns a snapshot copy of this session's local symbol
// table (not overlays or globals) — used by the executor's Persist verb
// to capture exactly what this session has declared so far.
func (s *Session) LocalSymbols() map[string]TypedValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]TypedValue, len(s.local))
	for k, v := range s.local {
		out[k] = v
	}
	return out
}

// GlobalSymbols returns the engine-scoped constants (Truth/False/Zero).
func (s *Session) GlobalSymbols() map[string]TypedValue { return s.global }

// localOverlay adapts a parent session's locals into a read-only
// Overlay so a child session can see them as its topmost overlay.
type localOverlay struct {
	name    string
	symbols map[string]TypedValue
}

func (l *localOverlay) OverlayName() string                  { return l.name }
func (l *localOverlay) OverlaySymbols() map[string]TypedValue { return l.symbols }
func (l *localOverlay) OverlayMacros() map[string]parse.Macro { return nil }

// NewChild creates a child session that shares this session's overlays
// and globals; the parent's current locals are inserted as an immutable
// snapshot overlay on top (spec.md §3 Lifecycles).
func (s *Session) NewChild() *Session {
	s.mu.RLock()
	snapshot := make(map[string]TypedValue, len(s.local))
	for k, v := range s.local {
		snapshot[k] = v
	}
	overlays := make([]Overlay, len(s.overlays), len(s.overlays)+1)
	copy(overlays, s.overlays)
	s.mu.RUnlock()

	child := New(s.config, s.global)
	child.index = s.index
	child.overlays = append(overlays, &localOverlay{name: "parent:" + s.ID, symbols: snapshot})
	return child
}
