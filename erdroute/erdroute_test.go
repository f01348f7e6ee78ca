package erdroute_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"oss.terrastruct.com/erd/erdgeom"
	"oss.terrastruct.com/erd/erdroute"
	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/erdtarget"
	"oss.terrastruct.com/erd/lib/geo"
	"oss.terrastruct.com/erd/lib/go2"
	"oss.terrastruct.com/erd/lib/log"
)

var calc = erdgeom.NewCalculator(erdgeom.Sizes{}, nil)

func customers() erdschema.Table {
	return erdschema.Table{
		Name:       "customers",
		Columns:    []erdschema.Column{{Name: "id", DataType: "int"}, {Name: "name", DataType: "text"}},
		PrimaryKey: []string{"id"},
	}
}

func orders(target string) erdschema.Table {
	return erdschema.Table{
		Name:       "orders",
		Columns:    []erdschema.Column{{Name: "id", DataType: "int"}, {Name: "customer_id", DataType: "int"}},
		PrimaryKey: []string{"id"},
		ForeignKeys: []erdschema.ForeignKey{
			{SourceColumn: "customer_id", TargetTable: target, TargetColumn: "id", Relationship: erdschema.OneToMany},
		},
	}
}

func place(t erdschema.Table, x, y float64) erdroute.Placed {
	return erdroute.Placed{Origin: geo.Point{X: x, Y: y}, Geometry: calc.Compute(t)}
}

func TestSelectSides(t *testing.T) {
	t.Parallel()

	narrow := erdschema.Table{Name: "n"}
	testCases := []struct {
		name   string
		srcX   float64
		dstX   float64
		expSrc erdtarget.Side
		expDst erdtarget.Side
	}{
		{name: "stacked", srcX: 0, dstX: 0, expSrc: erdtarget.Top, expDst: erdtarget.Bottom},
		// threshold is 220 + 24
		{name: "inside_buffer", srcX: 0, dstX: 243, expSrc: erdtarget.Top, expDst: erdtarget.Bottom},
		{name: "target_right", srcX: 0, dstX: 244, expSrc: erdtarget.Right, expDst: erdtarget.Left},
		{name: "target_left", srcX: 244, dstX: 0, expSrc: erdtarget.Left, expDst: erdtarget.Right},
		{name: "far_right", srcX: 0, dstX: 1000, expSrc: erdtarget.Right, expDst: erdtarget.Left},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			src := place(narrow, tc.srcX, 0)
			dst := place(narrow, tc.dstX, 500)
			for i := 0; i < 3; i++ {
				srcSide, dstSide := erdroute.SelectSides(src, dst, erdroute.OVERLAP_BUFFER)
				assert.Equal(t, tc.expSrc, srcSide)
				assert.Equal(t, tc.expDst, dstSide)
			}
		})
	}
}

func TestSelectSidesFallthrough(t *testing.T) {
	t.Parallel()

	// Neither origin test holds once the buffer is negative enough to skip vertical routing.
	src := place(erdschema.Table{Name: "a"}, 0, 0)
	dst := place(erdschema.Table{Name: "b"}, 100, 0)
	srcSide, dstSide := erdroute.SelectSides(src, dst, -500)
	assert.Equal(t, erdtarget.Right, srcSide)
	assert.Equal(t, erdtarget.Left, dstSide)
}

func TestAnchor(t *testing.T) {
	t.Parallel()

	p := place(orders("customers"), 60, 40)
	w := p.Geometry.Width

	assert.Equal(t, geo.Point{X: 60, Y: 40 + 36 + 28 + 14 + 4}, erdroute.Anchor(p, erdtarget.Left, 1))
	assert.Equal(t, geo.Point{X: 60 + w, Y: 40 + 36 + 14 + 4}, erdroute.Anchor(p, erdtarget.Right, 0))
	assert.Equal(t, geo.Point{X: 60 + w/2, Y: 40}, erdroute.Anchor(p, erdtarget.Top, 1))
	assert.Equal(t, geo.Point{X: 60 + w/2, Y: 40 + 92}, erdroute.Anchor(p, erdtarget.Bottom, 0))
}

func TestCurve(t *testing.T) {
	t.Parallel()

	c1, c2 := erdroute.Curve(geo.Point{X: 0, Y: 0}, geo.Point{X: 100, Y: 50}, false, 0.4)
	assert.Equal(t, geo.Point{X: 40, Y: 0}, c1)
	assert.Equal(t, geo.Point{X: 60, Y: 50}, c2)

	c1, c2 = erdroute.Curve(geo.Point{X: 0, Y: 0}, geo.Point{X: 100, Y: 50}, true, 0.4)
	assert.Equal(t, geo.Point{X: 0, Y: 20}, c1)
	assert.Equal(t, geo.Point{X: 100, Y: 30}, c2)
}

func TestCardinality(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		rel      erdschema.Relationship
		expStart string
		expEnd   string
	}{
		{erdschema.OneToOne, "1", "1"},
		{erdschema.OneToMany, "1", "*"},
		{erdschema.ManyToMany, "*", "*"},
		{erdschema.Unknown, "", ""},
		{erdschema.Relationship("ManyToOne"), "", ""},
	}
	for _, tc := range testCases {
		start, end := erdroute.Cardinality(tc.rel)
		assert.Equal(t, tc.expStart, start, string(tc.rel))
		assert.Equal(t, tc.expEnd, end, string(tc.rel))
	}
}

func TestRouteOrdersCustomers(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	schema := erdschema.New(ctx, []erdschema.Table{orders("customers"), customers()})
	o, c := place(schema.Tables[0], 60, 40), place(schema.Tables[1], 340, 40)
	assert.Equal(t, 92., o.Geometry.Height)
	assert.Equal(t, 92., c.Geometry.Height)
	// "🔗 customer_id  int" is 19 cells wide.
	assert.Equal(t, 246., o.Geometry.Width)

	edges, skipped := erdroute.NewRouter(erdroute.Config{}).Route(ctx, schema, map[string]erdroute.Placed{
		"orders":    o,
		"customers": c,
	})
	assert.Empty(t, skipped)
	assert.Len(t, edges, 1)

	e := edges[0]
	assert.Equal(t, "orders.customer_id->customers.id", e.ID)
	assert.Equal(t, erdtarget.Right, e.Side)
	assert.Equal(t, erdtarget.Left, e.RefSide)
	// starts at customers.id, ends at orders.customer_id
	assert.Equal(t, geo.Point{X: 340, Y: 94}, e.Start)
	assert.Equal(t, geo.Point{X: 306, Y: 122}, e.End)
	assert.InDelta(t, 326.4, e.C1.X, geo.PRECISION)
	assert.Equal(t, 94., e.C1.Y)
	assert.InDelta(t, 319.6, e.C2.X, geo.PRECISION)
	assert.Equal(t, 122., e.C2.Y)

	assert.Equal(t, "1", e.StartLabel.Text)
	assert.Equal(t, "*", e.EndLabel.Text)
	start, end := geo.Point{X: e.StartLabel.X, Y: e.StartLabel.Y}, geo.Point{X: e.EndLabel.X, Y: e.EndLabel.Y}
	assert.Less(t, start.DistanceTo(&e.Start), start.DistanceTo(&e.End))
	assert.Less(t, end.DistanceTo(&e.End), end.DistanceTo(&e.Start))
}

func TestRouteVerticalLabels(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	schema := erdschema.New(ctx, []erdschema.Table{orders("customers"), customers()})
	o, c := place(schema.Tables[0], 60, 300), place(schema.Tables[1], 60, 40)

	edges, _ := erdroute.NewRouter(erdroute.Config{}).Route(ctx, schema, map[string]erdroute.Placed{
		"orders":    o,
		"customers": c,
	})
	assert.Len(t, edges, 1)
	e := edges[0]
	assert.Equal(t, erdtarget.Top, e.Side)
	assert.Equal(t, erdtarget.Bottom, e.RefSide)
	assert.Equal(t, geo.Point{X: 170, Y: 132}, e.Start)
	assert.Equal(t, geo.Point{X: 60 + 123, Y: 300}, e.End)

	// The curve leaves straight down, so the first symbol sits 18px below the start
	// and 6px to its left.
	assert.InDelta(t, 164, e.StartLabel.X, 0.5)
	assert.InDelta(t, 150, e.StartLabel.Y, 0.5)
}

func TestRouteSkipsDangling(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	bad := orders("customers")
	bad.ForeignKeys = append(bad.ForeignKeys,
		erdschema.ForeignKey{SourceColumn: "customer_id", TargetTable: "ghost", TargetColumn: "id"},
		erdschema.ForeignKey{SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "nope"},
		erdschema.ForeignKey{SourceColumn: "nope", TargetTable: "customers", TargetColumn: "id"},
	)
	schema := erdschema.New(ctx, []erdschema.Table{bad, customers()})
	edges, skipped := erdroute.NewRouter(erdroute.Config{}).Route(ctx, schema, map[string]erdroute.Placed{
		"orders":    place(schema.Tables[0], 60, 40),
		"customers": place(schema.Tables[1], 340, 40),
	})

	assert.Len(t, edges, 1)
	assert.Equal(t, "customers", edges[0].RefTable)
	reasons := []erdtarget.SkipReason{}
	for _, s := range skipped {
		reasons = append(reasons, s.Reason)
	}
	assert.Equal(t, []erdtarget.SkipReason{erdtarget.MissingTable, erdtarget.MissingRefColumn, erdtarget.MissingColumn}, reasons)
}

func TestRouteSelfReference(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	employees := erdschema.Table{
		Name:        "employees",
		Columns:     []erdschema.Column{{Name: "id", DataType: "int"}, {Name: "manager_id", DataType: "int"}},
		PrimaryKey:  []string{"id"},
		ForeignKeys: []erdschema.ForeignKey{{SourceColumn: "manager_id", TargetTable: "employees", TargetColumn: "id", Relationship: erdschema.OneToMany}},
	}
	schema := erdschema.New(ctx, []erdschema.Table{employees})
	edges, skipped := erdroute.NewRouter(erdroute.Config{}).Route(ctx, schema, map[string]erdroute.Placed{
		"employees": place(employees, 60, 40),
	})
	assert.Empty(t, skipped)
	assert.Len(t, edges, 1)
	assert.Equal(t, erdtarget.Top, edges[0].Side)
	assert.Equal(t, erdtarget.Bottom, edges[0].RefSide)
}

func TestRouteZeroConfig(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	schema := erdschema.New(ctx, []erdschema.Table{orders("customers"), customers()})
	route := func(cfg erdroute.Config, customersX float64) erdtarget.Edge {
		edges, _ := erdroute.NewRouter(cfg).Route(ctx, schema, map[string]erdroute.Placed{
			"orders":    place(schema.Tables[0], 0, 0),
			"customers": place(schema.Tables[1], customersX, 0),
		})
		assert.Len(t, edges, 1)
		return edges[0]
	}
	zero := go2.Pointer(0.)

	// Centers 240 apart: inside the default threshold of 233+24, outside 233+0.
	def := route(erdroute.Config{}, 253)
	assert.Equal(t, erdtarget.Top, def.Side)
	noBuffer := route(erdroute.Config{OverlapBuffer: zero}, 253)
	assert.Equal(t, erdtarget.Right, noBuffer.Side)
	assert.Equal(t, erdtarget.Left, noBuffer.RefSide)

	def = route(erdroute.Config{}, 340)
	onCurve := route(erdroute.Config{LabelOffset: zero}, 340)
	assert.Equal(t, def.StartLabel.X, onCurve.StartLabel.X)
	assert.InDelta(t, 6, onCurve.StartLabel.Y-def.StartLabel.Y, geo.PRECISION)
}
