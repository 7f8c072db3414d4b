// internal/goal/instructions.go
package goal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Point is a position on the map plane.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ErrEmptyProgram is returned when there are no points to move through.
var ErrEmptyProgram = errors.New("instruction graph has no move instructions")

var moveInstruction = regexp.MustCompile(`MoveAbs\(\s*(-?[0-9.eE+-]+)\s*,\s*(-?[0-9.eE+-]+)\s*,\s*([0-9.eE+-]+)\s*\)`)

// BuildInstructionGraph folds the targets into one program: one vertex per
// target moving there at speed, then a terminal vertex.
//
//	P(V(0, Do(MoveAbs(1, 2, 0.35), 1)) V(1, Do(MoveAbs(3, 4, 0.35), 2)) V(2, end))
func BuildInstructionGraph(targets []Point, speed float64) string {
	var b strings.Builder
	b.WriteString("P(")
	for i, p := range targets {
		fmt.Fprintf(&b, "V(%d, Do(MoveAbs(%s, %s, %s), %d)) ",
			i, formatFloat(p.X), formatFloat(p.Y), formatFloat(speed), i+1)
	}
	fmt.Fprintf(&b, "V(%d, end))", len(targets))
	return b.String()
}

// ParseInstructionGraph extracts the MoveAbs targets and the speed of the first one.
func ParseInstructionGraph(program string) ([]Point, float64, error) {
	matches := moveInstruction.FindAllStringSubmatch(program, -1)
	if len(matches) == 0 {
		return nil, 0, ErrEmptyProgram
	}

	points := make([]Point, 0, len(matches))
	var speed float64
	for i, m := range matches {
		x, errX := strconv.ParseFloat(m[1], 64)
		y, errY := strconv.ParseFloat(m[2], 64)
		v, errV := strconv.ParseFloat(m[3], 64)
		if err := errors.Join(errX, errY, errV); err != nil {
			return nil, 0, fmt.Errorf("instruction %d: %w", i, err)
		}
		if i == 0 {
			speed = v
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, speed, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
