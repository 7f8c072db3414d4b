package goal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInstructionGraph(t *testing.T) {
	program := BuildInstructionGraph([]Point{{X: 1, Y: 2}, {X: -3.5, Y: 4.25}}, 0.35)

	assert.Equal(t,
		"P(V(0, Do(MoveAbs(1, 2, 0.35), 1)) V(1, Do(MoveAbs(-3.5, 4.25, 0.35), 2)) V(2, end))",
		program)
}

func TestParseInstructionGraphRoundTrip(t *testing.T) {
	targets := []Point{{X: 19.8, Y: 58.85}, {X: -0.5, Y: 1e-3}, {X: 0, Y: 0}}

	points, speed, err := ParseInstructionGraph(BuildInstructionGraph(targets, 0.68))
	require.NoError(t, err)
	assert.Equal(t, targets, points)
	assert.Equal(t, 0.68, speed)
}

func TestParseInstructionGraphWithoutMoves(t *testing.T) {
	_, _, err := ParseInstructionGraph("P(V(0, end))")
	assert.ErrorIs(t, err, ErrEmptyProgram)
}
