// Package waypoint resolves named waypoints to map coordinates.
package waypoint

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"cp1-controllers/internal/goal"

	"gopkg.in/yaml.v3"
)

// ErrUnknownWaypoint is returned for names missing from the map.
var ErrUnknownWaypoint = errors.New("unknown waypoint")

// Waypoint is a named location on the map.
type Waypoint struct {
	Name string  `yaml:"name" json:"name"`
	X    float64 `yaml:"x" json:"x"`
	Y    float64 `yaml:"y" json:"y"`
}

func (w Waypoint) Point() goal.Point {
	return goal.Point{X: w.X, Y: w.Y}
}

// Points converts waypoints to bare coordinates.
func Points(ws []Waypoint) []goal.Point {
	out := make([]goal.Point, len(ws))
	for i, w := range ws {
		out[i] = w.Point()
	}
	return out
}

// Names lists the waypoint names in order.
func Names(ws []Waypoint) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Name
	}
	return out
}

type document struct {
	MapID     string     `yaml:"map_id"`
	Waypoints []Waypoint `yaml:"waypoints"`
}

// Map is an immutable name -> coordinates lookup.
type Map struct {
	mapID  string
	byName map[string]Waypoint
	order  []Waypoint
}

// Load reads a waypoint YAML file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read waypoint map %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse waypoint map %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a waypoint document. Duplicate or empty names are rejected.
func Parse(data []byte) (*Map, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return New(doc.MapID, doc.Waypoints)
}

// New builds a map from waypoints.
func New(mapID string, waypoints []Waypoint) (*Map, error) {
	m := &Map{mapID: mapID, byName: make(map[string]Waypoint, len(waypoints))}
	for _, w := range waypoints {
		if w.Name == "" {
			return nil, errors.New("waypoint without a name")
		}
		if _, dup := m.byName[w.Name]; dup {
			return nil, fmt.Errorf("duplicate waypoint %s", w.Name)
		}
		m.byName[w.Name] = w
		m.order = append(m.order, w)
	}
	return m, nil
}

func (m *Map) MapID() string {
	return m.mapID
}

// All returns the waypoints in file order.
func (m *Map) All() []Waypoint {
	return append([]Waypoint(nil), m.order...)
}

// Coords looks up one waypoint.
func (m *Map) Coords(name string) (Waypoint, error) {
	w, ok := m.byName[name]
	if !ok {
		return Waypoint{}, fmt.Errorf("%w: %s", ErrUnknownWaypoint, name)
	}
	return w, nil
}

// Resolve looks up every name, failing on the first unknown one.
func (m *Map) Resolve(names []string) ([]Waypoint, error) {
	out := make([]Waypoint, 0, len(names))
	for _, n := range names {
		w, err := m.Coords(n)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// TwoClosest returns the two waypoints nearest to (x, y), nearest first.
func (m *Map) TwoClosest(x, y float64) (Waypoint, Waypoint, error) {
	if len(m.order) < 2 {
		return Waypoint{}, Waypoint{}, fmt.Errorf("need at least two waypoints, map has %d", len(m.order))
	}

	sorted := m.All()
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Hypot(sorted[i].X-x, sorted[i].Y-y) < math.Hypot(sorted[j].X-x, sorted[j].Y-y)
	})
	return sorted[0], sorted[1], nil
}
