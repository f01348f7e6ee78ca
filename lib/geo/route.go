package geo

import (
	"math"
)

type Route []*Point

func (route Route) Length() float64 {
	l := 0.
	for i := 0; i < len(route)-1; i++ {
		l += EuclideanDistance(
			route[i].X, route[i].Y,
			route[i+1].X, route[i+1].Y,
		)
	}
	return l
}

// GetPointAtDistance returns the point at _distance_ along the route, and the index of the segment it's on.
// Distances outside the route are clamped to its ends.
func (route Route) GetPointAtDistance(distance float64) (*Point, int) {
	if len(route) == 0 {
		return nil, -1
	}
	if len(route) == 1 || distance <= 0 {
		return route[0].Copy(), 0
	}
	remaining := distance
	for i := 0; i < len(route)-1; i++ {
		curr, next := route[i], route[i+1]
		length := curr.DistanceTo(next)

		if remaining <= length {
			if length == 0 {
				return curr.Copy(), i
			}
			return curr.Interpolate(next, remaining/length), i
		}
		remaining -= length
	}

	return route[len(route)-1].Copy(), len(route) - 2
}

func (route Route) GetBoundingBox() (tl, br *Point) {
	minX := math.Inf(1)
	minY := math.Inf(1)
	maxX := math.Inf(-1)
	maxY := math.Inf(-1)

	for _, p := range route {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return NewPoint(minX, minY), NewPoint(maxX, maxY)
}
