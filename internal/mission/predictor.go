package mission

import (
	"math"

	"cp1-controllers/internal/goal"
)

// Predictor estimates mission duration from route geometry at a constant speed.
type Predictor struct {
	speed float64
}

// NewPredictor speed is in map units per second.
func NewPredictor(speed float64) *Predictor {
	return &Predictor{speed: speed}
}

func (p *Predictor) Speed() float64 {
	return p.speed
}

// Predict returns the seconds needed to visit points in order, starting at
// points[0]. A non-positive speed makes any non-empty route take forever.
func (p *Predictor) Predict(points []goal.Point) float64 {
	total := PathLength(points)
	if total == 0 {
		return 0
	}
	if p.speed <= 0 {
		return math.Inf(1)
	}
	return total / p.speed
}

// PathLength sums the Euclidean legs between consecutive points.
func PathLength(points []goal.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

func Distance(a, b goal.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
