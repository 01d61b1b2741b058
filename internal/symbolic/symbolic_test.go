package symbolic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spock/internal/session"
)

func TestCrossCheckDerivesTransitiveImplies(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	facts := []session.Fact{
		{Subject: "a", Verb: "Implies", Object: "b"},
		{Subject: "b", Verb: "Implies", Object: "c"},
	}

	agree, derived, err := e.CrossCheck(facts)
	require.NoError(t, err)
	assert.True(t, agree)

	require.Len(t, derived, 1)
	assert.Equal(t, "a", derived[0].Subject)
	assert.Equal(t, "Implies", derived[0].Verb)
	assert.Equal(t, "c", derived[0].Object)
}

func TestCrossCheckIgnoresNonSemanticVerbs(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	facts := []session.Fact{{Subject: "x", Verb: "Bind", Object: "y"}}
	agree, derived, err := e.CrossCheck(facts)
	require.NoError(t, err)
	assert.True(t, agree)
	assert.Empty(t, derived)
}

func TestCrossCheckNoDerivationWhenNoChain(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	facts := []session.Fact{{Subject: "a", Verb: "Is", Object: "b"}}
	_, derived, err := e.CrossCheck(facts)
	require.NoError(t, err)
	assert.Empty(t, derived)
}

func TestResetClearsAssertedFacts(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	_, _, err = e.CrossCheck([]session.Fact{
		{Subject: "a", Verb: "Implies", Object: "b"},
		{Subject: "b", Verb: "Implies", Object: "c"},
	})
	require.NoError(t, err)

	e.Reset()

	_, derived, err := e.CrossCheck([]session.Fact{{Subject: "a", Verb: "Implies", Object: "b"}})
	require.NoError(t, err)
	assert.Empty(t, derived)
}
