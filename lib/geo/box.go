package geo

import "fmt"

type Box struct {
	TopLeft *Point
	Width   float64
	Height  float64
}

func NewBox(tl *Point, width, height float64) *Box {
	return &Box{
		TopLeft: tl,
		Width:   width,
		Height:  height,
	}
}

func (b *Box) Copy() *Box {
	if b == nil {
		return nil
	}
	return NewBox(b.TopLeft.Copy(), b.Width, b.Height)
}

func (b *Box) BottomRight() *Point {
	return NewPoint(b.TopLeft.X+b.Width, b.TopLeft.Y+b.Height)
}

// Union returns the smallest box containing b and b2.
func (b *Box) Union(b2 *Box) *Box {
	if b == nil {
		return b2.Copy()
	}
	if b2 == nil {
		return b.Copy()
	}
	tl := NewPoint(min(b.TopLeft.X, b2.TopLeft.X), min(b.TopLeft.Y, b2.TopLeft.Y))
	br1, br2 := b.BottomRight(), b2.BottomRight()
	return NewBox(tl, max(br1.X, br2.X)-tl.X, max(br1.Y, br2.Y)-tl.Y)
}

func (b *Box) String() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("{TopLeft: %s, Width: %.0f, Height: %.0f}", b.TopLeft.String(), b.Width, b.Height)
}
