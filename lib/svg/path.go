package svg

import (
	"fmt"
	"math"
	"strings"

	"oss.terrastruct.com/erd/lib/geo"
)

type SvgPathContext struct {
	Commands []string
	Start    *geo.Point
	Current  *geo.Point
}

func chopPrecision(f float64) float64 {
	return math.Round(f*10000) / 10000
}

func NewSVGPathContext() *SvgPathContext {
	return &SvgPathContext{}
}

func (c *SvgPathContext) StartAt(p *geo.Point) {
	c.Start = p.Copy()
	c.Commands = append(c.Commands, fmt.Sprintf("M %v %v", chopPrecision(p.X), chopPrecision(p.Y)))
	c.Current = p.Copy()
}

func (c *SvgPathContext) L(p *geo.Point) {
	c.Commands = append(c.Commands, fmt.Sprintf("L %v %v", chopPrecision(p.X), chopPrecision(p.Y)))
	c.Current = p.Copy()
}

func (c *SvgPathContext) C(c1, c2, end *geo.Point) {
	c.Commands = append(c.Commands, fmt.Sprintf(
		"C %v %v %v %v %v %v",
		chopPrecision(c1.X), chopPrecision(c1.Y),
		chopPrecision(c2.X), chopPrecision(c2.Y),
		chopPrecision(end.X), chopPrecision(end.Y),
	))
	c.Current = end.Copy()
}

func (c *SvgPathContext) PathData() string {
	return strings.Join(c.Commands, " ")
}
