// Package textmeasure measures rendered text with real font metrics.
package textmeasure

import (
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/rivo/uniseg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"

	"oss.terrastruct.com/erd/lib/syncmap"
)

// FONT_SIZE matches the column text size of a table node.
const FONT_SIZE = 15

// Ruler measures strings set in Go Mono. It satisfies erdgeom.Ruler.
//
// Go Mono has no emoji or CJK glyphs, so graphemes wider than one cell are measured
// as that many space advances instead of the fallback glyph.
type Ruler struct {
	// font.Face is not safe for concurrent use.
	mu    sync.Mutex
	face  font.Face
	space float64

	widths syncmap.SyncMap[string, float64]
}

func NewRuler(size float64) (*Ruler, error) {
	if size <= 0 {
		size = FONT_SIZE
	}
	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	r := &Ruler{
		face:   face,
		widths: syncmap.New[string, float64](),
	}
	adv, ok := face.GlyphAdvance(' ')
	if !ok {
		return nil, errMissingSpace
	}
	r.space = toFloat(adv)
	return r, nil
}

func (r *Ruler) Width(s string) float64 {
	if w, ok := r.widths.Lookup(s); ok {
		return w
	}

	r.mu.Lock()
	w := 0.
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		if gr.Width() > 1 {
			w += r.space * float64(gr.Width())
			continue
		}
		w += toFloat(font.MeasureString(r.face, gr.Str()))
	}
	r.mu.Unlock()

	w = math.Ceil(w)
	r.widths.Set(s, w)
	return w
}

// SpaceWidth is the advance of one cell.
func (r *Ruler) SpaceWidth() float64 {
	return r.space
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
