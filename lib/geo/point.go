package geo

import (
	"fmt"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) *Point {
	return &Point{X: x, Y: y}
}

func (p *Point) Copy() *Point {
	return &Point{X: p.X, Y: p.Y}
}

func (p *Point) Add(dx, dy float64) *Point {
	return NewPoint(p.X+dx, p.Y+dy)
}

func (p *Point) DistanceTo(p2 *Point) float64 {
	return EuclideanDistance(p.X, p.Y, p2.X, p2.Y)
}

// Interpolate returns the point t of the way from p to p2.
func (p *Point) Interpolate(p2 *Point, t float64) *Point {
	return NewPoint(
		p.X*(1.0-t)+p2.X*t,
		p.Y*(1.0-t)+p2.Y*t,
	)
}

func (p *Point) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("(%v, %v)", p.X, p.Y)
}
