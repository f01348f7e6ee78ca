package geo

// How precise should comparisons be, avoid being too precise due to floating point issues
const PRECISION = 0.0001

// FLATTEN_SEGMENTS is how many straight segments a curve is split into when measured.
const FLATTEN_SEGMENTS = 64

// BezierCurve is a cubic curve from Start to End pulled by C1 and C2.
type BezierCurve struct {
	Start *Point
	C1    *Point
	C2    *Point
	End   *Point
}

func NewBezierCurve(start, c1, c2, end *Point) *BezierCurve {
	return &BezierCurve{
		Start: start,
		C1:    c1,
		C2:    c2,
		End:   end,
	}
}

// At returns the point at t along the curve, where 0 ≤ t ≤ 1
func (bc BezierCurve) At(t float64) *Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return NewPoint(
		a*bc.Start.X+b*bc.C1.X+c*bc.C2.X+d*bc.End.X,
		a*bc.Start.Y+b*bc.C1.Y+c*bc.C2.Y+d*bc.End.Y,
	)
}

// Flatten approximates the curve with a route of n straight segments.
func (bc BezierCurve) Flatten(n int) Route {
	if n < 1 {
		n = 1
	}
	route := make(Route, 0, n+1)
	for i := 0; i <= n; i++ {
		route = append(route, bc.At(float64(i)/float64(n)))
	}
	return route
}

func (bc BezierCurve) Length() float64 {
	return bc.Flatten(FLATTEN_SEGMENTS).Length()
}
