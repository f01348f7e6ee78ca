// Package erdroute draws relationship edges between column rows of placed nodes.
package erdroute

import (
	"context"
	"fmt"
	"math"

	"cdr.dev/slog"

	"oss.terrastruct.com/erd/erdgeom"
	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/erdtarget"
	"oss.terrastruct.com/erd/lib/geo"
	"oss.terrastruct.com/erd/lib/go2"
	"oss.terrastruct.com/erd/lib/log"
)

const (
	// OVERLAP_BUFFER widens the horizontal overlap test so nearly stacked nodes are
	// routed vertically.
	OVERLAP_BUFFER = 24
	CURVE_FACTOR   = 0.4
	// LABEL_INSET is the arclength between a curve end and its cardinality symbol.
	LABEL_INSET  = 18
	LABEL_OFFSET = 6
)

// Config tunes routing. Zero CurveFactor and LabelInset take the package defaults.
// OverlapBuffer and LabelOffset may be set to 0, so nil takes their default instead.
type Config struct {
	OverlapBuffer *float64
	CurveFactor   float64
	LabelInset    float64
	LabelOffset   *float64
}

type settings struct {
	overlapBuffer float64
	curveFactor   float64
	labelInset    float64
	labelOffset   float64
}

func (c Config) resolve() settings {
	st := settings{
		overlapBuffer: go2.Deref(c.OverlapBuffer, OVERLAP_BUFFER),
		curveFactor:   c.CurveFactor,
		labelInset:    c.LabelInset,
		labelOffset:   go2.Deref(c.LabelOffset, LABEL_OFFSET),
	}
	if st.curveFactor == 0 {
		st.curveFactor = CURVE_FACTOR
	}
	if st.labelInset == 0 {
		st.labelInset = LABEL_INSET
	}
	return st
}

// Placed is a node at its current position.
type Placed struct {
	Origin   geo.Point
	Geometry *erdgeom.Geometry
}

func (p Placed) center() float64 {
	return p.Origin.X + p.Geometry.Width/2
}

// SelectSides picks the side of the referencing node (src) and of the referenced node
// (dst) that the edge attaches to. Only x coordinates and widths are considered.
func SelectSides(src, dst Placed, overlapBuffer float64) (srcSide, dstSide erdtarget.Side) {
	sw, dw := src.Geometry.Width, dst.Geometry.Width
	threshold := (sw+dw)/2 + overlapBuffer

	switch {
	case math.Abs(src.center()-dst.center()) < threshold:
		return erdtarget.Top, erdtarget.Bottom
	case src.Origin.X < dst.Origin.X-dw/2:
		return erdtarget.Right, erdtarget.Left
	case src.Origin.X > dst.Origin.X+dw/2:
		return erdtarget.Left, erdtarget.Right
	default:
		return erdtarget.Right, erdtarget.Left
	}
}

// Anchor is where an edge meets row i of p on side. Top and bottom anchors are the
// middle of the node's edge whatever the row.
func Anchor(p Placed, side erdtarget.Side, row int) geo.Point {
	o, g := p.Origin, p.Geometry
	switch side {
	case erdtarget.Left:
		return geo.Point{X: o.X, Y: o.Y + g.RowOffset(row)}
	case erdtarget.Right:
		return geo.Point{X: o.X + g.Width, Y: o.Y + g.RowOffset(row)}
	case erdtarget.Top:
		return geo.Point{X: o.X + g.Width/2, Y: o.Y}
	default:
		return geo.Point{X: o.X + g.Width/2, Y: o.Y + g.Height}
	}
}

func vertical(side erdtarget.Side) bool {
	return side == erdtarget.Top || side == erdtarget.Bottom
}

// Curve returns the control points of the cubic from start to end. Both control points
// are pulled along the routing axis by factor of the distance on that axis.
func Curve(start, end geo.Point, verticalRouting bool, factor float64) (c1, c2 geo.Point) {
	if verticalRouting {
		dy := end.Y - start.Y
		return geo.Point{X: start.X, Y: start.Y + factor*dy}, geo.Point{X: end.X, Y: end.Y - factor*dy}
	}
	dx := end.X - start.X
	return geo.Point{X: start.X + factor*dx, Y: start.Y}, geo.Point{X: end.X - factor*dx, Y: end.Y}
}

// Cardinality returns the symbols drawn near the referenced end and the referencing end.
func Cardinality(r erdschema.Relationship) (start, end string) {
	switch r {
	case erdschema.OneToOne:
		return "1", "1"
	case erdschema.OneToMany:
		return "1", "*"
	case erdschema.ManyToMany:
		return "*", "*"
	default:
		return "", ""
	}
}

// labelAt places text at distance along route, moved by (dx, dy).
func labelAt(route geo.Route, distance, dx, dy float64, text string) *erdtarget.Label {
	if text == "" {
		return nil
	}
	p, _ := route.GetPointAtDistance(geo.Clamp(distance, 0, route.Length()))
	return &erdtarget.Label{
		Text: text,
		X:    p.X + dx,
		Y:    p.Y + dy,
	}
}

type Router struct {
	cfg settings
}

func NewRouter(cfg Config) *Router {
	return &Router{cfg: cfg.resolve()}
}

// Edge routes fk of table t. Both ends must already be known to resolve.
func (r *Router) Edge(t erdschema.Table, fk erdschema.ForeignKey, src Placed, dstTable erdschema.Table, dst Placed) erdtarget.Edge {
	srcRow := t.ColumnIndex(fk.SourceColumn)
	dstRow := dstTable.ColumnIndex(fk.TargetColumn)

	srcSide, dstSide := SelectSides(src, dst, r.cfg.overlapBuffer)
	start := Anchor(dst, dstSide, dstRow)
	end := Anchor(src, srcSide, srcRow)
	verticalRouting := vertical(srcSide)
	c1, c2 := Curve(start, end, verticalRouting, r.cfg.curveFactor)

	e := erdtarget.Edge{
		ID:           EdgeID(t.Name, fk),
		Table:        t.Name,
		Column:       fk.SourceColumn,
		RefTable:     fk.TargetTable,
		RefColumn:    fk.TargetColumn,
		Side:         srcSide,
		RefSide:      dstSide,
		Start:        start,
		C1:           c1,
		C2:           c2,
		End:          end,
		Relationship: fk.Relationship,
	}

	startText, endText := Cardinality(fk.Relationship)
	if startText != "" {
		// Symbols sit above horizontal edges and left of vertical ones.
		dx, dy := 0., -r.cfg.labelOffset
		if verticalRouting {
			dx, dy = -r.cfg.labelOffset, 0
		}
		route := e.Curve().Flatten(geo.FLATTEN_SEGMENTS)
		total := route.Length()
		e.StartLabel = labelAt(route, r.cfg.labelInset, dx, dy, startText)
		e.EndLabel = labelAt(route, total-r.cfg.labelInset, dx, dy, endText)
	}
	return e
}

func EdgeID(table string, fk erdschema.ForeignKey) string {
	return fmt.Sprintf("%s.%s->%s.%s", table, fk.SourceColumn, fk.TargetTable, fk.TargetColumn)
}

// Route draws every foreign key of schema whose ends resolve, in table order then
// foreign key order. Unresolvable keys are returned as skipped and logged.
func (r *Router) Route(ctx context.Context, schema *erdschema.Schema, placed map[string]Placed) ([]erdtarget.Edge, []erdtarget.SkippedEdge) {
	var edges []erdtarget.Edge
	var skipped []erdtarget.SkippedEdge

	skip := func(t erdschema.Table, fk erdschema.ForeignKey, reason erdtarget.SkipReason) {
		s := erdtarget.SkippedEdge{Table: t.Name, ForeignKey: fk, Reason: reason}
		log.Warn(ctx, "skipping edge", slog.F("edge", s.String()))
		skipped = append(skipped, s)
	}

	for _, t := range schema.Tables {
		src, ok := placed[t.Name]
		if !ok {
			continue
		}
		for _, fk := range t.ForeignKeys {
			dstTable, ok := schema.Table(fk.TargetTable)
			if !ok {
				skip(t, fk, erdtarget.MissingTable)
				continue
			}
			dst, ok := placed[fk.TargetTable]
			if !ok {
				skip(t, fk, erdtarget.MissingTable)
				continue
			}
			if dstTable.ColumnIndex(fk.TargetColumn) < 0 {
				skip(t, fk, erdtarget.MissingRefColumn)
				continue
			}
			if t.ColumnIndex(fk.SourceColumn) < 0 {
				skip(t, fk, erdtarget.MissingColumn)
				continue
			}

			e, err := r.safeEdge(t, fk, src, dstTable, dst)
			if err != nil {
				log.Error(ctx, "failed to draw edge", slog.F("edge", EdgeID(t.Name, fk)), slog.Error(err))
				skip(t, fk, erdtarget.DrawFailed)
				continue
			}
			edges = append(edges, e)
		}
	}
	return edges, skipped
}

func (r *Router) safeEdge(t erdschema.Table, fk erdschema.ForeignKey, src Placed, dstTable erdschema.Table, dst Placed) (e erdtarget.Edge, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.Edge(t, fk, src, dstTable, dst), nil
}
