// Package erdtarget is the laid out diagram: everything a renderer needs and nothing
// about how it was computed.
package erdtarget

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"

	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/lib/geo"
	"oss.terrastruct.com/erd/lib/go2"
)

type Side string

const (
	Left   Side = "left"
	Right  Side = "right"
	Top    Side = "top"
	Bottom Side = "bottom"
)

type IconKind string

const (
	PrimaryKeyIcon IconKind = "primary_key"
	ForeignKeyIcon IconKind = "foreign_key"
)

const (
	KEY_GLYPH  = "🔑"
	LINK_GLYPH = "🔗"
)

func (k IconKind) Glyph() string {
	if k == PrimaryKeyIcon {
		return KEY_GLYPH
	}
	return LINK_GLYPH
}

type Icon struct {
	Kind IconKind `json:"kind"`
	X    float64  `json:"x"`
}

// Row is one column row. Coordinates are relative to the node origin and Y is the
// text baseline.
type Row struct {
	Column   string  `json:"column"`
	DataType string  `json:"dataType"`
	Icons    []Icon  `json:"icons,omitempty"`
	NameX    float64 `json:"nameX"`
	TypeX    float64 `json:"typeX"`
	Y        float64 `json:"y"`
}

type Node struct {
	ID           string  `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	HeaderHeight float64 `json:"headerHeight"`
	// ZIndex is the paint position. Higher paints later.
	ZIndex int   `json:"zIndex"`
	Rows   []Row `json:"rows"`
}

func (n Node) Box() *geo.Box {
	return geo.NewBox(geo.NewPoint(n.X, n.Y), n.Width, n.Height)
}

type Label struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Edge joins a foreign key column to the column it references. The curve runs from
// the referenced column (Start) to the referencing one (End).
type Edge struct {
	ID string `json:"id"`

	Table     string `json:"table"`
	Column    string `json:"column"`
	RefTable  string `json:"refTable"`
	RefColumn string `json:"refColumn"`

	Side    Side `json:"side"`
	RefSide Side `json:"refSide"`

	Start geo.Point `json:"start"`
	C1    geo.Point `json:"c1"`
	C2    geo.Point `json:"c2"`
	End   geo.Point `json:"end"`

	Relationship erdschema.Relationship `json:"relationship,omitempty"`
	StartLabel   *Label                 `json:"startLabel,omitempty"`
	EndLabel     *Label                 `json:"endLabel,omitempty"`
}

func (e Edge) Curve() *geo.BezierCurve {
	return geo.NewBezierCurve(e.Start.Copy(), e.C1.Copy(), e.C2.Copy(), e.End.Copy())
}

type SkipReason string

const (
	MissingTable     SkipReason = "missing target table"
	MissingRefColumn SkipReason = "missing target column"
	MissingColumn    SkipReason = "missing source column"
	DrawFailed       SkipReason = "draw failed"
)

// SkippedEdge is a foreign key that could not be drawn.
type SkippedEdge struct {
	Table      string               `json:"table"`
	ForeignKey erdschema.ForeignKey `json:"foreignKey"`
	Reason     SkipReason           `json:"reason"`
}

func (s SkippedEdge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s: %s", s.Table, s.ForeignKey.SourceColumn, s.ForeignKey.TargetTable, s.ForeignKey.TargetColumn, s.Reason)
}

type Diagram struct {
	// Nodes are in paint order.
	Nodes   []Node        `json:"nodes"`
	Edges   []Edge        `json:"edges"`
	Skipped []SkippedEdge `json:"skipped,omitempty"`
}

func (diagram Diagram) Node(id string) (Node, bool) {
	for _, n := range diagram.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func (diagram Diagram) Bytes() ([]byte, error) {
	return json.Marshal(diagram)
}

func (diagram Diagram) HashID() (string, error) {
	bytes, err := diagram.Bytes()
	if err != nil {
		return "", err
	}
	h := fnv.New32a()
	h.Write(bytes)
	// CSS names can't start with numbers, so prepend a little something
	return fmt.Sprintf("erd-%d", h.Sum32()), nil
}

// BoundingBox covers every node, every edge curve and every label.
// An empty diagram has a zero box.
func (diagram Diagram) BoundingBox() (topLeft, bottomRight geo.Point) {
	if len(diagram.Nodes) == 0 && len(diagram.Edges) == 0 {
		return geo.Point{}, geo.Point{}
	}

	x1, y1 := math.Inf(1), math.Inf(1)
	x2, y2 := math.Inf(-1), math.Inf(-1)
	extend := func(p geo.Point) {
		x1 = go2.Min(x1, p.X)
		y1 = go2.Min(y1, p.Y)
		x2 = go2.Max(x2, p.X)
		y2 = go2.Max(y2, p.Y)
	}

	for _, n := range diagram.Nodes {
		b := n.Box()
		extend(*b.TopLeft)
		extend(*b.BottomRight())
	}
	for _, e := range diagram.Edges {
		tl, br := e.Curve().Flatten(geo.FLATTEN_SEGMENTS).GetBoundingBox()
		extend(*tl)
		extend(*br)
		for _, l := range []*Label{e.StartLabel, e.EndLabel} {
			if l != nil {
				extend(geo.Point{X: l.X, Y: l.Y})
			}
		}
	}
	return geo.Point{X: x1, Y: y1}, geo.Point{X: x2, Y: y2}
}
