package erdgrid_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"oss.terrastruct.com/erd/erdlayouts/erdgrid"
	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/lib/geo"
	"oss.terrastruct.com/erd/lib/go2"
	"oss.terrastruct.com/erd/lib/log"
)

func tables(columns ...int) []erdschema.Table {
	var out []erdschema.Table
	for i, n := range columns {
		t := erdschema.Table{Name: fmt.Sprintf("t%d", i)}
		for j := 0; j < n; j++ {
			t.Columns = append(t.Columns, erdschema.Column{Name: fmt.Sprintf("c%d", j), DataType: "int"})
		}
		out = append(out, t)
	}
	return out
}

func TestColumns(t *testing.T) {
	t.Parallel()

	exp := []int{0, 1, 2, 2, 2, 3, 3, 3, 3, 3, 4}
	for n, cols := range exp {
		assert.Equal(t, cols, erdgrid.Columns(n), "n=%d", n)
	}
}

func TestLayout(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		columns []int
		exp     map[string]geo.Point
	}{
		{
			name:    "single",
			columns: []int{3},
			exp: map[string]geo.Point{
				"t0": {X: 60, Y: 40},
			},
		},
		{
			name:    "two_by_two",
			columns: []int{2, 2, 2},
			exp: map[string]geo.Point{
				"t0": {X: 60, Y: 40},
				"t1": {X: 340, Y: 40},
				// 40 + (36 + 28*3 + 40)
				"t2": {X: 60, Y: 200},
			},
		},
		{
			name:    "uneven_rows",
			columns: []int{1, 9, 0, 5},
			exp: map[string]geo.Point{
				"t0": {X: 60, Y: 40},
				"t1": {X: 340, Y: 40},
				// row pitch uses the placed table's own columns: 36 + 28*1 + 40
				"t2": {X: 60, Y: 144},
				"t3": {X: 340, Y: 40 + 36 + 28*6 + 40},
			},
		},
		{
			name:    "empty",
			columns: nil,
			exp:     map[string]geo.Point{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := log.WithTB(context.Background(), t, nil)

			assert.Equal(t, tc.exp, erdgrid.Layout(ctx, tables(tc.columns...), erdgrid.Config{}))
		})
	}
}

func TestLayoutDeterministic(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	in := tables(4, 1, 7, 2, 2, 3, 0)
	first := erdgrid.Layout(ctx, in, erdgrid.Config{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, erdgrid.Layout(ctx, in, erdgrid.Config{}))
	}
}

func TestLayoutConfig(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	got := erdgrid.Layout(ctx, tables(1, 1, 1), erdgrid.Config{MarginX: go2.Pointer(10.), MarginY: go2.Pointer(10.), NodeWidth: 100})
	assert.Equal(t, geo.Point{X: 120, Y: 10}, got["t1"])
	assert.Equal(t, geo.Point{X: 10, Y: 10 + 36 + 56 + 10}, got["t2"])

	flush := erdgrid.Layout(ctx, tables(1, 1, 1), erdgrid.Config{MarginX: go2.Pointer(0.), MarginY: go2.Pointer(0.)})
	assert.Equal(t, geo.Point{X: 0, Y: 0}, flush["t0"])
	assert.Equal(t, geo.Point{X: 220, Y: 0}, flush["t1"])
	assert.Equal(t, geo.Point{X: 0, Y: 36 + 56}, flush["t2"])
}
