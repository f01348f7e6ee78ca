// Package erdsvg renders a laid out diagram to SVG.
package erdsvg

import (
	"bytes"
	"fmt"
	"math"

	"oss.terrastruct.com/erd/erdtarget"
	"oss.terrastruct.com/erd/erdthemes"
	"oss.terrastruct.com/erd/lib/go2"
	"oss.terrastruct.com/erd/lib/svg"
)

const (
	DEFAULT_PADDING = 40
	MIN_VIEWBOX     = 100

	NODE_RADIUS       = 12
	NODE_STROKE_WIDTH = 2
	TITLE_FONT_SIZE   = 18
	// TITLE_BASELINE is how far below the header middle the title baseline sits.
	TITLE_BASELINE   = 6
	COLUMN_FONT_SIZE = 15
	TYPE_FONT_SIZE   = 13

	EDGE_STROKE_WIDTH = 3
	EDGE_DASHARRAY    = "8 6"
	LABEL_FONT_SIZE   = 13

	MONOSPACE = "monospace"
)

type RenderOpts struct {
	Pad     *int64
	ThemeID *int64
	// Animate marches the edge dashes from the referenced end toward the referencing end.
	Animate  *bool
	NoXMLTag *bool
}

func themeFor(opts *RenderOpts) (erdthemes.Theme, error) {
	th := erdthemes.Dark
	if opts.ThemeID != nil {
		found := false
		for _, t := range erdthemes.Catalog {
			if t.ID == *opts.ThemeID {
				th, found = t, true
				break
			}
		}
		if !found {
			return erdthemes.Theme{}, fmt.Errorf("theme %d not found", *opts.ThemeID)
		}
	}
	return th.Resolve()
}

// dimensions returns the viewBox of the diagram. An empty diagram gets a small
// square so the output is still a valid drawing.
func dimensions(diagram *erdtarget.Diagram, pad float64) (left, top, width, height float64) {
	tl, br := diagram.BoundingBox()
	left = math.Floor(tl.X - pad)
	top = math.Floor(tl.Y - pad)
	width = go2.Max(math.Ceil(br.X-tl.X+pad*2), MIN_VIEWBOX)
	height = go2.Max(math.Ceil(br.Y-tl.Y+pad*2), MIN_VIEWBOX)
	return left, top, width, height
}

// Render paints edges first, then nodes in diagram order so later nodes cover
// earlier ones and every node covers every edge.
func Render(diagram *erdtarget.Diagram, opts *RenderOpts) ([]byte, error) {
	if opts == nil {
		opts = &RenderOpts{}
	}
	pad := float64(go2.Deref(opts.Pad, DEFAULT_PADDING))
	theme, err := themeFor(opts)
	if err != nil {
		return nil, err
	}
	diagramHash, err := diagram.HashID()
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if !go2.Deref(opts.NoXMLTag, false) {
		buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	}

	left, top, w, h := dimensions(diagram, pad)
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" class="erd-svg %s" data-erd-theme="%s" width="%s" height="%s" viewBox="%s %s %s %s">`,
		diagramHash, theme.Name, svg.Num(w), svg.Num(h), svg.Num(left), svg.Num(top), svg.Num(w), svg.Num(h))

	writeStyle(buf, theme, go2.Deref(opts.Animate, false))

	bg := erdthemes.NewThemableElement("rect")
	bg.X, bg.Y, bg.Width, bg.Height = left, top, w, h
	bg.Fill = erdthemes.Background
	bg.ClassName = "erd-background"
	buf.WriteString(bg.Render())

	buf.WriteString(`<g class="erd-edges">`)
	for _, e := range diagram.Edges {
		drawEdge(buf, e)
	}
	buf.WriteString(`</g>`)

	buf.WriteString(`<g class="erd-nodes">`)
	for _, n := range diagram.Nodes {
		drawNode(buf, n)
	}
	buf.WriteString(`</g>`)

	buf.WriteString(`</svg>`)
	return buf.Bytes(), nil
}

func writeStyle(buf *bytes.Buffer, theme erdthemes.Theme, animate bool) {
	buf.WriteString(`<style type="text/css"><![CDATA[`)
	buf.WriteString(theme.CSS())
	fmt.Fprintf(buf, `.erd-table-body{filter:drop-shadow(0 4px 16px %s);}`, theme.Colors[erdthemes.Shadow])
	buf.WriteString(`.erd-table{cursor:grab;}.erd-table.erd-dragging{cursor:grabbing;}`)
	fmt.Fprintf(buf, `.erd-table.erd-dragging .erd-table-body{stroke:%s;}`, theme.Colors[erdthemes.Highlight])
	buf.WriteString(`.erd-table text{user-select:none;}`)
	if animate {
		buf.WriteString(`.erd-animated-edge{animation:erd-dashmove 1.2s linear infinite;}`)
		buf.WriteString(`@keyframes erd-dashmove{to{stroke-dashoffset:-28;}}`)
	}
	buf.WriteString(`]]></style>`)
}

func drawEdge(buf *bytes.Buffer, e erdtarget.Edge) {
	fmt.Fprintf(buf, `<g class="erd-edge" data-edge="%s">`, svg.EscapeText(e.ID))

	pc := svg.NewSVGPathContext()
	pc.StartAt(&e.Start)
	pc.C(&e.C1, &e.C2, &e.End)

	path := erdthemes.NewThemableElement("path")
	path.D = pc.PathData()
	path.Fill = "none"
	path.Stroke = erdthemes.EdgeStroke
	path.StrokeWidth = EDGE_STROKE_WIDTH
	path.StrokeDasharray = EDGE_DASHARRAY
	path.ClassName = "erd-animated-edge"
	buf.WriteString(path.Render())

	for _, l := range []*erdtarget.Label{e.StartLabel, e.EndLabel} {
		if l == nil {
			continue
		}
		textEl := erdthemes.NewThemableElement("text")
		textEl.X, textEl.Y = l.X, l.Y
		textEl.FontSize = LABEL_FONT_SIZE
		textEl.FontWeight = "700"
		textEl.TextAnchor = "middle"
		textEl.Fill = erdthemes.EdgeLabel
		textEl.ClassName = "erd-cardinality"
		textEl.Content = svg.EscapeText(l.Text)
		buf.WriteString(textEl.Render())
	}
	buf.WriteString(`</g>`)
}

func drawNode(buf *bytes.Buffer, n erdtarget.Node) {
	inner := &bytes.Buffer{}

	body := erdthemes.NewThemableElement("rect")
	body.Width, body.Height = n.Width, n.Height
	body.Rx = NODE_RADIUS
	body.Fill = erdthemes.NodeFill
	body.Stroke = erdthemes.NodeStroke
	body.StrokeWidth = NODE_STROKE_WIDTH
	body.ClassName = "erd-table-body"
	inner.WriteString(body.Render())

	header := erdthemes.NewThemableElement("rect")
	header.Width, header.Height = n.Width, n.HeaderHeight
	header.Rx = NODE_RADIUS
	header.Fill = erdthemes.HeaderFill
	header.ClassName = "erd-table-header"
	inner.WriteString(header.Render())

	title := erdthemes.NewThemableElement("text")
	title.X, title.Y = n.Width/2, n.HeaderHeight/2+TITLE_BASELINE
	title.TextAnchor = "middle"
	title.FontSize = TITLE_FONT_SIZE
	title.FontWeight = "700"
	title.Fill = erdthemes.HeaderText
	title.ClassName = "erd-table-title"
	title.Content = svg.EscapeText(n.ID)
	inner.WriteString(title.Render())

	for _, row := range n.Rows {
		drawRow(inner, row)
	}

	group := erdthemes.NewThemableElement("g")
	group.SetTranslate(n.X, n.Y)
	group.ClassName = "erd-table"
	group.Attributes = fmt.Sprintf(`data-table="%s"`, svg.EscapeText(n.ID))
	group.Content = inner.String()
	buf.WriteString(group.Render())
}

func drawRow(buf *bytes.Buffer, row erdtarget.Row) {
	fmt.Fprintf(buf, `<g class="erd-column" data-column="%s">`, svg.EscapeText(row.Column))
	for _, icon := range row.Icons {
		iconEl := erdthemes.NewThemableElement("text")
		iconEl.X, iconEl.Y = icon.X, row.Y
		iconEl.FontSize = COLUMN_FONT_SIZE
		iconEl.FontFamily = MONOSPACE
		iconEl.Fill = erdthemes.LinkIcon
		if icon.Kind == erdtarget.PrimaryKeyIcon {
			iconEl.Fill = erdthemes.KeyIcon
		}
		iconEl.ClassName = "erd-icon"
		iconEl.Content = icon.Kind.Glyph()
		buf.WriteString(iconEl.Render())
	}

	name := erdthemes.NewThemableElement("text")
	name.X, name.Y = row.NameX, row.Y
	name.FontSize = COLUMN_FONT_SIZE
	name.FontFamily = MONOSPACE
	name.Fill = erdthemes.ColumnText
	name.ClassName = "erd-column-name"
	name.Content = svg.EscapeText(row.Column)
	buf.WriteString(name.Render())

	if row.DataType != "" {
		typ := erdthemes.NewThemableElement("text")
		typ.X, typ.Y = row.TypeX, row.Y
		typ.FontSize = TYPE_FONT_SIZE
		typ.FontFamily = MONOSPACE
		typ.TextAnchor = "end"
		typ.Fill = erdthemes.TypeText
		typ.ClassName = "erd-column-type"
		typ.Content = svg.EscapeText(row.DataType)
		buf.WriteString(typ.Render())
	}
	buf.WriteString(`</g>`)
}
