// Package erdlib drives layout and redraw of an interactive diagram.
package erdlib

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cdr.dev/slog"

	"oss.terrastruct.com/erd/erdgeom"
	"oss.terrastruct.com/erd/erdlayouts/erdgrid"
	"oss.terrastruct.com/erd/erdroute"
	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/erdstate"
	"oss.terrastruct.com/erd/erdtarget"
	"oss.terrastruct.com/erd/lib/geo"
	"oss.terrastruct.com/erd/lib/log"
)

var ErrUnknownTable = errors.New("unknown table")

type Options struct {
	Sizes erdgeom.Sizes
	// Ruler defaults to erdgeom.MonospaceRuler.
	Ruler erdgeom.Ruler
	Grid  erdgrid.Config
	Route erdroute.Config
}

// Driver owns one diagram: its metadata, its node positions and the last scene drawn
// from them. Every change redraws the whole scene synchronously.
//
// Methods are safe for concurrent use and are applied one at a time.
type Driver struct {
	mu sync.Mutex

	schema *erdschema.Schema
	store  *erdstate.Store
	calc   *erdgeom.Calculator
	router *erdroute.Router
	grid   erdgrid.Config

	diagram  *erdtarget.Diagram
	onRender []func(*erdtarget.Diagram)
}

func NewDriver(opts *Options) *Driver {
	if opts == nil {
		opts = &Options{}
	}
	calc := erdgeom.NewCalculator(opts.Sizes, opts.Ruler)
	grid := opts.Grid
	if grid.Sizes == (erdgeom.Sizes{}) {
		grid.Sizes = calc.Sizes
	}
	return &Driver{
		schema:  erdschema.New(context.Background(), nil),
		store:   erdstate.NewStore(),
		calc:    calc,
		router:  erdroute.NewRouter(opts.Route),
		grid:    grid,
		diagram: &erdtarget.Diagram{},
	}
}

// OnRender registers fn to receive every scene the driver draws. fn runs with the
// driver locked and must not call back into it.
func (d *Driver) OnRender(fn func(*erdtarget.Diagram)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onRender = append(d.onRender, fn)
}

// Load replaces the metadata. All positions are discarded and the grid is run again.
func (d *Driver) Load(ctx context.Context, schema *erdschema.Schema) *erdtarget.Diagram {
	d.mu.Lock()
	defer d.mu.Unlock()

	if schema == nil {
		schema = erdschema.New(ctx, nil)
	}
	d.schema = schema
	d.store.Reset(erdgrid.Layout(ctx, schema.Tables, d.grid))
	log.Info(ctx, "loaded metadata", slog.F("tables", schema.Len()))
	return d.redraw(ctx)
}

// Redraw rebuilds the scene from the current metadata and positions.
func (d *Driver) Redraw(ctx context.Context) *erdtarget.Diagram {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.redraw(ctx)
}

// DragStart raises table above every other node until DragEnd.
func (d *Driver) DragStart(ctx context.Context, table string) (*erdtarget.Diagram, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.store.BeginDrag(table) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return d.redraw(ctx), nil
}

// DragMove moves the origin of table to (x, y) and redraws.
func (d *Driver) DragMove(ctx context.Context, table string, x, y float64) (*erdtarget.Diagram, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.store.Set(table, x, y) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return d.redraw(ctx), nil
}

// DragEnd keeps the last position of table and drops its raised paint order.
func (d *Driver) DragEnd(ctx context.Context, table string) (*erdtarget.Diagram, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.store.Get(table); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	d.store.EndDrag(table)
	return d.redraw(ctx), nil
}

func (d *Driver) Positions() map[string]geo.Point {
	return d.store.Snapshot()
}

// Diagram returns the last scene drawn.
func (d *Driver) Diagram() *erdtarget.Diagram {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.diagram
}

func (d *Driver) redraw(ctx context.Context) *erdtarget.Diagram {
	placed := make(map[string]erdroute.Placed, d.schema.Len())
	diagram := &erdtarget.Diagram{
		Nodes: make([]erdtarget.Node, 0, d.schema.Len()),
	}

	for _, name := range d.store.PaintOrder(d.schema.TableNames()) {
		t, _ := d.schema.Table(name)
		pos, ok := d.store.Get(name)
		if !ok {
			log.Warn(ctx, "table has no position", slog.F("table", name))
			continue
		}
		node, g, err := d.safeNode(t, pos, len(diagram.Nodes))
		if err != nil {
			log.Error(ctx, "failed to draw table", slog.F("table", name), slog.Error(err))
			continue
		}
		placed[name] = erdroute.Placed{Origin: pos, Geometry: g}
		diagram.Nodes = append(diagram.Nodes, node)
	}

	diagram.Edges, diagram.Skipped = d.router.Route(ctx, d.schema, placed)
	if diagram.Edges == nil {
		diagram.Edges = []erdtarget.Edge{}
	}

	log.Debug(ctx, "redrew diagram",
		slog.F("nodes", len(diagram.Nodes)),
		slog.F("edges", len(diagram.Edges)),
		slog.F("skipped", len(diagram.Skipped)),
	)

	d.diagram = diagram
	for _, fn := range d.onRender {
		fn(diagram)
	}
	return diagram
}

func (d *Driver) safeNode(t erdschema.Table, pos geo.Point, z int) (node erdtarget.Node, g *erdgeom.Geometry, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	g = d.calc.Compute(t)
	return erdtarget.Node{
		ID:           t.Name,
		X:            pos.X,
		Y:            pos.Y,
		Width:        g.Width,
		Height:       g.Height,
		HeaderHeight: g.HeaderHeight(),
		ZIndex:       z,
		Rows:         g.Rows,
	}, g, nil
}

// Render lays out schema on the grid and draws it once.
func Render(ctx context.Context, schema *erdschema.Schema, opts *Options) *erdtarget.Diagram {
	return NewDriver(opts).Load(ctx, schema)
}
