// Package erdgrid places table nodes on a near square grid.
package erdgrid

import (
	"context"
	"math"

	"cdr.dev/slog"

	"oss.terrastruct.com/erd/erdgeom"
	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/lib/geo"
	"oss.terrastruct.com/erd/lib/go2"
	"oss.terrastruct.com/erd/lib/log"
)

// Config overrides the grid spacing. A zero NodeWidth or zero Sizes heights take the
// package defaults. Margins may be set to 0, so nil takes their default instead.
type Config struct {
	MarginX   *float64
	MarginY   *float64
	NodeWidth float64
	Sizes     erdgeom.Sizes
}

type spacing struct {
	marginX      float64
	marginY      float64
	nodeWidth    float64
	headerHeight float64
	rowHeight    float64
}

func (c Config) resolve() spacing {
	sp := spacing{
		marginX:      go2.Deref(c.MarginX, MARGIN_X),
		marginY:      go2.Deref(c.MarginY, MARGIN_Y),
		nodeWidth:    c.NodeWidth,
		headerHeight: c.Sizes.HeaderHeight,
		rowHeight:    c.Sizes.RowHeight,
	}
	if sp.nodeWidth == 0 {
		sp.nodeWidth = NODE_WIDTH
	}
	if sp.headerHeight == 0 {
		sp.headerHeight = erdgeom.HEADER_HEIGHT
	}
	if sp.rowHeight == 0 {
		sp.rowHeight = erdgeom.ROW_HEIGHT
	}
	return sp
}

// Columns is the number of grid columns used for n tables.
func Columns(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

// Layout returns the origin of every table, keyed by table name.
//
// Tables fill the grid row by row in input order. A row's vertical pitch comes from
// the column count of the table being placed, not the tallest in the previous row,
// so rows of uneven tables can overlap.
func Layout(ctx context.Context, tables []erdschema.Table, cfg Config) map[string]geo.Point {
	sp := cfg.resolve()
	positions := make(map[string]geo.Point, len(tables))
	cols := Columns(len(tables))

	for i, t := range tables {
		row := i / cols
		col := i % cols
		pitchY := sp.headerHeight + sp.rowHeight*float64(len(t.Columns)+1) + sp.marginY
		positions[t.Name] = geo.Point{
			X: sp.marginX + float64(col)*(sp.nodeWidth+sp.marginX),
			Y: sp.marginY + float64(row)*pitchY,
		}
	}

	log.Debug(ctx, "grid placed tables", slog.F("tables", len(tables)), slog.F("columns", cols))
	return positions
}
