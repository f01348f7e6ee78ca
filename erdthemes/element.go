package erdthemes

import (
	"fmt"
	"math"
	"strings"

	"oss.terrastruct.com/erd/lib/svg"
)

// ThemableElement builds one SVG element. Fill, Stroke and Color may be a palette
// token, in which case a class is emitted instead of the attribute.
//
// Numeric fields are omitted while they hold math.MaxFloat64.
type ThemableElement struct {
	tag string

	X           float64
	Y           float64
	Width       float64
	Height      float64
	Rx          float64
	StrokeWidth float64
	FontSize    float64

	D               string
	Transform       string
	StrokeDasharray string
	TextAnchor      string
	FontWeight      string
	FontFamily      string

	Fill   string
	Stroke string
	Color  string

	ClassName  string
	Style      string
	Attributes string

	// Content must already be escaped.
	Content string
}

func NewThemableElement(tag string) *ThemableElement {
	return &ThemableElement{
		tag:         tag,
		X:           math.MaxFloat64,
		Y:           math.MaxFloat64,
		Width:       math.MaxFloat64,
		Height:      math.MaxFloat64,
		Rx:          math.MaxFloat64,
		StrokeWidth: math.MaxFloat64,
		FontSize:    math.MaxFloat64,
	}
}

func (el *ThemableElement) SetTranslate(x, y float64) {
	el.Transform = svg.Translate(x, y)
}

func (el *ThemableElement) Render() string {
	var sb strings.Builder
	sb.WriteString("<" + el.tag)

	num := func(name string, v float64) {
		if v != math.MaxFloat64 {
			fmt.Fprintf(&sb, ` %s="%s"`, name, svg.Num(v))
		}
	}
	str := func(name, v string) {
		if v != "" {
			fmt.Fprintf(&sb, ` %s="%s"`, name, v)
		}
	}

	num("x", el.X)
	num("y", el.Y)
	num("width", el.Width)
	num("height", el.Height)
	num("rx", el.Rx)
	str("d", el.D)
	str("transform", el.Transform)

	class := el.ClassName
	themed := func(prop, v string) {
		if IsToken(v) {
			class += fmt.Sprintf(" %s-%s", prop, v)
		} else {
			str(prop, v)
		}
	}
	themed("fill", el.Fill)
	themed("stroke", el.Stroke)
	themed("color", el.Color)

	num("stroke-width", el.StrokeWidth)
	str("stroke-dasharray", el.StrokeDasharray)
	num("font-size", el.FontSize)
	str("font-weight", el.FontWeight)
	str("font-family", el.FontFamily)
	str("text-anchor", el.TextAnchor)

	str("class", strings.TrimSpace(class))
	str("style", el.Style)
	if el.Attributes != "" {
		sb.WriteString(" " + el.Attributes)
	}

	if el.Content != "" {
		fmt.Fprintf(&sb, ">%s</%s>", el.Content, el.tag)
		return sb.String()
	}
	sb.WriteString(" />")
	return sb.String()
}
