package reasoner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInversionLessTotalOrder(t *testing.T) {
	require.True(t, Inversion{NodeID: 1}.Less(Inversion{NodeID: 2}), "smaller NodeID wins")
	require.False(t, Inversion{NodeID: 2}.Less(Inversion{NodeID: 1}))

	require.True(t, Inversion{NodeID: 1, Index: 5}.Less(Inversion{NodeID: 1, Index: 3}), "larger Index wins for equal NodeID")

	require.True(t,
		Inversion{NodeID: 1, Index: 3, ThroughAllPaths: true}.Less(Inversion{NodeID: 1, Index: 3, ThroughAllPaths: false}),
		"ThroughAllPaths=true wins for equal NodeID and Index")

	same := Inversion{NodeID: 1, Index: 3, ThroughAllPaths: true}
	require.False(t, same.Less(same))
}

func TestInversionEqual(t *testing.T) {
	a := Inversion{NodeID: 1, Index: 2, ThroughAllPaths: true}
	b := Inversion{NodeID: 1, Index: 2, ThroughAllPaths: true}
	c := Inversion{NodeID: 1, Index: 2, ThroughAllPaths: false}
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestMessageIsTerminal(t *testing.T) {
	require.False(t, NewAnswer(0, nil).IsTerminal())
	require.False(t, NewConclusion(0, nil).IsTerminal())
	require.False(t, NewHitInversion(0, true, 0).IsTerminal())
	require.True(t, NewDone(0).IsTerminal())
	require.True(t, NewTerminateSCC(Inversion{}, 0).IsTerminal())
}
