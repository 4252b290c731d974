package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyContractedGraph(t *testing.T) {
	g := contract(t, randomGraph(3, 80), "binary")
	pairs := RandomPairs(g.NumNodes(), 500, 11)

	report, err := Verify(context.Background(), g, pairs, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 500, report.Pairs)
	assert.Empty(t, report.Mismatches)
	assert.Positive(t, report.PlainVisited)
}

func TestVerifyReportsMismatch(t *testing.T) {
	g := buildTwoBranchGraph(t)
	sc := g.Edge(13) // the 0-7 shortcut, weight 4.2
	g.Reroute(13, 3.0, sc.Distance, sc.SkipNode, sc.OriginalEdges)

	report, err := Verify(context.Background(), g, [][2]int32{{0, 7}, {3, 3}, {7, 0}}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pairs)
	require.Len(t, report.Mismatches, 2)
	assert.ElementsMatch(t, []Mismatch{
		{Source: 0, Target: 7, Want: 4.2, Got: 3.0},
		{Source: 7, Target: 0, Want: 4.2, Got: 3.0},
	}, roundWants(report.Mismatches))
}

func TestVerifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Verify(ctx, buildTwoBranchGraph(t), [][2]int32{{0, 7}}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomPairs(t *testing.T) {
	a := RandomPairs(10, 50, 1)
	assert.Equal(t, a, RandomPairs(10, 50, 1))
	assert.NotEqual(t, a, RandomPairs(10, 50, 2))
	for _, p := range a {
		assert.True(t, p[0] >= 0 && p[0] < 10 && p[1] >= 0 && p[1] < 10)
	}
	assert.Nil(t, RandomPairs(0, 5, 1))
}

// roundWants snaps Dijkstra sums like 1.4+1.4+1.4 to one decimal.
func roundWants(ms []Mismatch) []Mismatch {
	out := make([]Mismatch, len(ms))
	for i, m := range ms {
		m.Want = float64(int(m.Want*10+0.5)) / 10
		out[i] = m
	}
	return out
}
