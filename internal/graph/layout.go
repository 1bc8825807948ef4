package graph

import "math"

// Point is a position in graph space.
type Point struct {
	X, Y float64
}

// Layout assigns positions to nodes without modifying the snapshot.
type Layout interface {
	Positions(s *Snapshot) map[string]Point
}

// RadialLayout puts the seed at the origin and each linked node on a circle at its link distance.
//
// Nodes not linked to the seed go on an outer ring. It is a static placement for offline export.
type RadialLayout struct {
	// StartAngle in radians for the first target; 0 points right.
	StartAngle float64
}

func (r RadialLayout) Positions(s *Snapshot) map[string]Point {
	pos := make(map[string]Point)
	seed, ok := s.Seed()
	if !ok {
		return pos
	}
	pos[seed.ID] = Point{}

	var linked []Link
	maxDist := 0.0
	for _, l := range s.Links {
		if l.Source != seed.ID {
			continue
		}
		if _, done := pos[l.Target]; done {
			continue
		}
		linked = append(linked, l)
		pos[l.Target] = Point{}
		maxDist = math.Max(maxDist, l.Distance)
	}
	for i, l := range linked {
		pos[l.Target] = polar(l.Distance, r.StartAngle+2*math.Pi*float64(i)/float64(len(linked)))
	}

	var rest []string
	for _, n := range s.Nodes {
		if _, ok := pos[n.ID]; !ok {
			rest = append(rest, n.ID)
		}
	}
	if maxDist == 0 {
		maxDist = DefaultDistance
	}
	for i, id := range rest {
		pos[id] = polar(2*maxDist, r.StartAngle+2*math.Pi*float64(i)/float64(len(rest)))
	}
	return pos
}

func polar(radius, angle float64) Point {
	return Point{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
}

// Bounds returns the smallest box containing every position.
func Bounds(pos map[string]Point) (lo, hi Point) {
	first := true
	for _, p := range pos {
		if first {
			lo, hi = p, p
			first = false
			continue
		}
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	return lo, hi
}
