package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spock/internal/config"
	"spock/internal/parse"
)

type fakeOverlay struct {
	name    string
	symbols map[string]TypedValue
	macros  map[string]parse.Macro
}

func (f *fakeOverlay) OverlayName() string                  { return f.name }
func (f *fakeOverlay) OverlaySymbols() map[string]TypedValue { return f.symbols }
func (f *fakeOverlay) OverlayMacros() map[string]parse.Macro { return f.macros }

func newTestSession() *Session {
	globals := map[string]TypedValue{"Truth": StringValue("truth-marker")}
	return New(config.DefaultConfig(), globals)
}

func TestLocalShadowsOverlay(t *testing.T) {
	s := newTestSession()
	s.OverlayTheory(&fakeOverlay{name: "t1", symbols: map[string]TypedValue{"x": StringValue("overlay")}})
	s.SetSymbol("@x", StringValue("local"))

	v, ok := s.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, "local", v.String)
}

func TestOverlaysConsultedNewestFirst(t *testing.T) {
	s := newTestSession()
	s.OverlayTheory(&fakeOverlay{name: "older", symbols: map[string]TypedValue{"x": StringValue("older")}})
	s.OverlayTheory(&fakeOverlay{name: "newer", symbols: map[string]TypedValue{"x": StringValue("newer")}})

	v, ok := s.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, "newer", v.String)
}

func TestGlobalConsultedLast(t *testing.T) {
	s := newTestSession()
	v, ok := s.Resolve("Truth")
	require.True(t, ok)
	assert.Equal(t, "truth-marker", v.String)
}

func TestPopOverlayRemovesNewest(t *testing.T) {
	s := newTestSession()
	s.OverlayTheory(&fakeOverlay{name: "a"})
	s.OverlayTheory(&fakeOverlay{name: "b"})

	ov, ok := s.PopOverlay()
	require.True(t, ok)
	assert.Equal(t, "b", ov.OverlayName())
}

func TestChildSessionSeesParentLocalsAsOverlay(t *testing.T) {
	parent := newTestSession()
	parent.SetSymbol("@x", StringValue("from-parent"))

	child := parent.NewChild()
	v, ok := child.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, "from-parent", v.String)

	// Mutating the child must not affect the parent's snapshot.
	child.SetSymbol("@x", StringValue("from-child"))
	pv, _ := parent.Resolve("x")
	assert.Equal(t, "from-parent", pv.String)
}

func TestBareAndPrefixedFormsResolveSame(t *testing.T) {
	s := newTestSession()
	s.SetSymbol("@result", StringValue("ok"))

	v1, ok1 := s.Resolve("@result")
	v2, ok2 := s.Resolve("result")
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, v1, v2)
}

func TestResolveMacroThroughOverlay(t *testing.T) {
	s := newTestSession()
	m := parse.Macro{Name: "@Greet", Kind: parse.KindVerb}
	s.OverlayTheory(&fakeOverlay{name: "t", macros: map[string]parse.Macro{"Greet": m}})

	got, ok := s.ResolveMacro("@Greet")
	require.True(t, ok)
	assert.Equal(t, m.Name, got.Name)
}
