// Package erdgeom sizes table nodes and lays out their column rows.
package erdgeom

import (
	"math"
	"strings"

	"github.com/rivo/uniseg"

	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/erdtarget"
	"oss.terrastruct.com/erd/lib/go2"
)

const (
	HEADER_HEIGHT       = 36
	ROW_HEIGHT          = 28
	MIN_NODE_WIDTH      = 220
	CHAR_WIDTH          = 10
	WIDTH_PADDING       = 56
	BASELINE_CORRECTION = 4
	ICON_INSET          = 16
	ICON_SLOT           = 18
	ICON_GAP            = 4
	TYPE_INSET          = 16
)

// Sizes are the node dimensions in px. Zero float fields take the package defaults.
// The insets and gaps are pointers so they can be set to 0; nil takes the default.
type Sizes struct {
	HeaderHeight       float64  `json:"headerHeight"`
	RowHeight          float64  `json:"rowHeight"`
	MinNodeWidth       float64  `json:"minNodeWidth"`
	WidthPadding       *float64 `json:"widthPadding"`
	BaselineCorrection *float64 `json:"baselineCorrection"`
	IconInset          *float64 `json:"iconInset"`
	IconSlot           float64  `json:"iconSlot"`
	IconGap            *float64 `json:"iconGap"`
	TypeInset          *float64 `json:"typeInset"`
}

func DefaultSizes() Sizes {
	return Sizes{
		HeaderHeight:       HEADER_HEIGHT,
		RowHeight:          ROW_HEIGHT,
		MinNodeWidth:       MIN_NODE_WIDTH,
		WidthPadding:       go2.Pointer[float64](WIDTH_PADDING),
		BaselineCorrection: go2.Pointer[float64](BASELINE_CORRECTION),
		IconInset:          go2.Pointer[float64](ICON_INSET),
		IconSlot:           ICON_SLOT,
		IconGap:            go2.Pointer[float64](ICON_GAP),
		TypeInset:          go2.Pointer[float64](TYPE_INSET),
	}
}

// metrics are Sizes with every default applied.
type metrics struct {
	headerHeight       float64
	rowHeight          float64
	minNodeWidth       float64
	widthPadding       float64
	baselineCorrection float64
	iconInset          float64
	iconSlot           float64
	iconGap            float64
	typeInset          float64
}

func (s Sizes) resolve() metrics {
	or := func(v, def float64) float64 {
		if v == 0 {
			return def
		}
		return v
	}
	return metrics{
		headerHeight:       or(s.HeaderHeight, HEADER_HEIGHT),
		rowHeight:          or(s.RowHeight, ROW_HEIGHT),
		minNodeWidth:       or(s.MinNodeWidth, MIN_NODE_WIDTH),
		widthPadding:       go2.Deref(s.WidthPadding, WIDTH_PADDING),
		baselineCorrection: go2.Deref(s.BaselineCorrection, BASELINE_CORRECTION),
		iconInset:          go2.Deref(s.IconInset, ICON_INSET),
		iconSlot:           or(s.IconSlot, ICON_SLOT),
		iconGap:            go2.Deref(s.IconGap, ICON_GAP),
		typeInset:          go2.Deref(s.TypeInset, TYPE_INSET),
	}
}

func (m metrics) sizes() Sizes {
	return Sizes{
		HeaderHeight:       m.headerHeight,
		RowHeight:          m.rowHeight,
		MinNodeWidth:       m.minNodeWidth,
		WidthPadding:       go2.Pointer(m.widthPadding),
		BaselineCorrection: go2.Pointer(m.baselineCorrection),
		IconInset:          go2.Pointer(m.iconInset),
		IconSlot:           m.iconSlot,
		IconGap:            go2.Pointer(m.iconGap),
		TypeInset:          go2.Pointer(m.typeInset),
	}
}

// Ruler measures the rendered width of a row of text in px.
type Ruler interface {
	Width(s string) float64
}

// MonospaceRuler measures text in terminal cells, so wide glyphs like emoji count twice.
type MonospaceRuler struct {
	CharWidth float64
}

func (r MonospaceRuler) Width(s string) float64 {
	cw := r.CharWidth
	if cw == 0 {
		cw = CHAR_WIDTH
	}
	return float64(uniseg.StringWidth(s)) * cw
}

type Geometry struct {
	Table  string          `json:"table"`
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
	Rows   []erdtarget.Row `json:"rows"`

	m metrics
}

// Calculator derives geometry from table metadata. It holds no state between calls.
type Calculator struct {
	Sizes Sizes
	Ruler Ruler

	m metrics
}

func NewCalculator(sizes Sizes, ruler Ruler) *Calculator {
	if ruler == nil {
		ruler = MonospaceRuler{}
	}
	m := sizes.resolve()
	return &Calculator{
		Sizes: m.sizes(),
		Ruler: ruler,
		m:     m,
	}
}

func (c *Calculator) Compute(t erdschema.Table) *Geometry {
	m := c.m
	g := &Geometry{
		Table:  t.Name,
		Height: m.headerHeight + m.rowHeight*float64(len(t.Columns)),
		Width:  math.Max(m.minNodeWidth, c.textWidth(t)+m.widthPadding),
		Rows:   make([]erdtarget.Row, 0, len(t.Columns)),
		m:      m,
	}

	for i, col := range t.Columns {
		row := erdtarget.Row{
			Column:   col.Name,
			DataType: col.DataType,
			Y:        g.RowOffset(i),
			TypeX:    g.Width - m.typeInset,
		}
		x := m.iconInset
		for _, kind := range icons(t, col.Name) {
			row.Icons = append(row.Icons, erdtarget.Icon{Kind: kind, X: x})
			x += m.iconSlot
		}
		if len(row.Icons) > 0 {
			x += m.iconGap
		}
		row.NameX = x
		g.Rows = append(g.Rows, row)
	}
	return g
}

func icons(t erdschema.Table, column string) []erdtarget.IconKind {
	var kinds []erdtarget.IconKind
	if t.IsPrimaryKey(column) {
		kinds = append(kinds, erdtarget.PrimaryKeyIcon)
	}
	if t.IsForeignKey(column) {
		kinds = append(kinds, erdtarget.ForeignKeyIcon)
	}
	return kinds
}

// textWidth is the widest text the node must fit: the table name or a column row
// written as icons, name and type.
func (c *Calculator) textWidth(t erdschema.Table) float64 {
	w := c.Ruler.Width(t.Name)
	for _, col := range t.Columns {
		w = math.Max(w, c.Ruler.Width(RowText(t, col)))
	}
	return w
}

func RowText(t erdschema.Table, col erdschema.Column) string {
	var glyphs []string
	for _, kind := range icons(t, col.Name) {
		glyphs = append(glyphs, kind.Glyph())
	}
	var sb strings.Builder
	if len(glyphs) > 0 {
		sb.WriteString(strings.Join(glyphs, " "))
		sb.WriteString(" ")
	}
	sb.WriteString(col.Name)
	sb.WriteString("  ")
	sb.WriteString(col.DataType)
	return sb.String()
}

// RowOffset is the vertical distance from the node top to the text baseline of row i.
func (g *Geometry) RowOffset(i int) float64 {
	m := g.m
	return m.headerHeight + m.rowHeight*float64(i) + m.rowHeight/2 + m.baselineCorrection
}

func (g *Geometry) HeaderHeight() float64 {
	return g.m.headerHeight
}
