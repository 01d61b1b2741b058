package theorystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "theories"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const sampleSource = `@a Identity Truth Truth
`

func TestSaveThenLoadRoundTrips(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.Save("Sample", sampleSource)
	require.NoError(t, err)
	assert.Equal(t, "Sample", saved.Name)
	assert.NotEmpty(t, saved.VersionID)

	loaded, err := s.Load("Sample")
	require.NoError(t, err)
	assert.Equal(t, saved.VersionID, loaded.VersionID)
	assert.Equal(t, sampleSource, loaded.Source)
}

func TestLoadMissingTheoryFails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("Nope")
	assert.ErrorIs(t, err, ErrTheoryNotFound)
}

func TestExistsAndList(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.Exists("Sample"))

	_, err := s.Save("Sample", sampleSource)
	require.NoError(t, err)
	assert.True(t, s.Exists("Sample"))

	names, err := s.List()
	require.NoError(t, err)
	assert.Contains(t, names, "Sample")
}

func TestDeleteRemovesTheory(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("Sample", sampleSource)
	require.NoError(t, err)

	require.NoError(t, s.Delete("Sample"))
	assert.False(t, s.Exists("Sample"))
	_, err = s.Load("Sample")
	assert.ErrorIs(t, err, ErrTheoryNotFound)
}

func TestSeedBuiltinsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, SeedBuiltins(s))
	first, err := s.Load(baseLogicName)
	require.NoError(t, err)

	require.NoError(t, SeedBuiltins(s))
	second, err := s.Load(baseLogicName)
	require.NoError(t, err)

	assert.Equal(t, first.VersionID, second.VersionID)
}

func TestBaseLogicExposesVerbMacrosAsOverlay(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, SeedBuiltins(s))
	desc, err := s.Load(baseLogicName)
	require.NoError(t, err)

	macros := desc.OverlayMacros()
	for _, name := range []string{"Is", "Not", "And", "Or", "Implies", "Evaluate"} {
		_, ok := macros[name]
		assert.True(t, ok, "expected macro %q", name)
	}
	assert.Equal(t, baseLogicName, desc.OverlayName())
}

func TestSaveInvalidSourceFailsParse(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("Broken", "@x verb begin\n")
	assert.Error(t, err)
}

func TestVersionIDsAreUnique(t *testing.T) {
	a := newVersionID()
	b := newVersionID()
	assert.NotEqual(t, a, b)
}
