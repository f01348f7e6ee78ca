// Package erdthemes holds the color palettes a diagram can be rendered with.
//
// Elements reference palette entries by name (see Palette tokens) and the renderer
// writes one CSS rule per entry, so a page can swap themes without re-rendering.
package erdthemes

import (
	"fmt"
	"sort"
	"strings"

	"oss.terrastruct.com/erd/lib/color"
)

// Palette tokens.
const (
	Background = "Background"
	NodeFill   = "NodeFill"
	NodeStroke = "NodeStroke"
	HeaderFill = "HeaderFill"
	HeaderText = "HeaderText"
	ColumnText = "ColumnText"
	TypeText   = "TypeText"
	KeyIcon    = "KeyIcon"
	LinkIcon   = "LinkIcon"
	EdgeStroke = "EdgeStroke"
	EdgeLabel  = "EdgeLabel"
	Shadow     = "Shadow"
	Highlight  = "Highlight"
)

var tokens = []string{
	Background, NodeFill, NodeStroke, HeaderFill, HeaderText, ColumnText,
	TypeText, KeyIcon, LinkIcon, EdgeStroke, EdgeLabel, Shadow, Highlight,
}

func IsToken(s string) bool {
	for _, t := range tokens {
		if t == s {
			return true
		}
	}
	return false
}

type Theme struct {
	ID     int64             `json:"id"`
	Name   string            `json:"name"`
	Colors map[string]string `json:"colors"`
}

var Dark = Theme{
	ID:   0,
	Name: "dark",
	Colors: map[string]string{
		Background: "#181a24",
		NodeFill:   "#232533",
		NodeStroke: "#0d6efd",
		HeaderFill: "#0d6efd",
		HeaderText: color.White,
		ColumnText: color.White,
		TypeText:   "#adb5bd",
		KeyIcon:    "#ffd700",
		LinkIcon:   "#0dcaf0",
		EdgeStroke: "#0dcaf0",
		EdgeLabel:  "#0dcaf0",
	},
}

var Light = Theme{
	ID:   1,
	Name: "light",
	Colors: map[string]string{
		Background: "#f8f9fa",
		NodeFill:   color.White,
		NodeStroke: "#0d6efd",
		HeaderFill: "#0d6efd",
		HeaderText: color.White,
		ColumnText: "#212529",
		TypeText:   "#6c757d",
		KeyIcon:    "#b8860b",
		LinkIcon:   "#0a7ea4",
		EdgeStroke: "#0a7ea4",
		EdgeLabel:  "#0a58ca",
	},
}

var Catalog = []Theme{Dark, Light}

func Find(name string) (Theme, bool) {
	for _, t := range Catalog {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Theme{}, false
}

func Names() []string {
	names := make([]string, len(Catalog))
	for i, t := range Catalog {
		names[i] = t.Name
	}
	return names
}

// Resolve fills derived entries and checks every color parses.
func (t Theme) Resolve() (Theme, error) {
	out := Theme{ID: t.ID, Name: t.Name, Colors: make(map[string]string, len(tokens))}
	for k, v := range t.Colors {
		out.Colors[k] = v
	}
	if out.Colors[Shadow] == "" {
		fill := out.Colors[NodeFill]
		shadow, err := color.Darken(fill)
		if err != nil {
			return Theme{}, fmt.Errorf("failed to derive shadow from %q: %w", fill, err)
		}
		out.Colors[Shadow] = shadow
	}
	// Outline of the node being dragged.
	if out.Colors[Highlight] == "" {
		hl, err := color.Lighten(out.Colors[NodeStroke])
		if err != nil {
			return Theme{}, fmt.Errorf("failed to derive highlight from %q: %w", out.Colors[NodeStroke], err)
		}
		out.Colors[Highlight] = hl
	}
	if out.Colors[HeaderText] == "" {
		c, err := color.Contrast(out.Colors[HeaderFill], color.White, color.Black)
		if err != nil {
			return Theme{}, err
		}
		out.Colors[HeaderText] = c
	}
	for _, tok := range tokens {
		if err := color.Validate(out.Colors[tok]); err != nil {
			return Theme{}, fmt.Errorf("theme %s: %s: %w", t.Name, tok, err)
		}
	}
	return out, nil
}

// CSS returns one rule per palette entry and property.
func (t Theme) CSS() string {
	keys := make([]string, 0, len(t.Colors))
	for k := range t.Colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		c := t.Colors[k]
		fmt.Fprintf(&sb, ".fill-%s{fill:%s;}", k, c)
		fmt.Fprintf(&sb, ".stroke-%s{stroke:%s;}", k, c)
		fmt.Fprintf(&sb, ".color-%s{color:%s;}", k, c)
	}
	return sb.String()
}
