package color

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

// Validate reports whether colorString is a CSS color a browser would accept.
func Validate(colorString string) error {
	if colorString == None {
		return nil
	}
	if _, err := csscolorparser.Parse(colorString); err != nil {
		return fmt.Errorf("invalid color %q: %w", colorString, err)
	}
	return nil
}

func Darken(colorString string) (string, error) {
	return shiftLightness(colorString, -.1)
}

func Lighten(colorString string) (string, error) {
	return shiftLightness(colorString, .1)
}

func shiftLightness(colorString string, delta float64) (string, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return "", err
	}
	h, s, l := colorful.Color{R: c.R, G: c.G, B: c.B}.Hsl()
	return colorful.Hsl(h, s, l+delta).Clamped().Hex(), nil
}

func Luminance(colorString string) (float64, error) {
	c, err := csscolorparser.Parse(colorString)
	if err != nil {
		return 0, err
	}

	l := float64(
		float64(0.299)*float64(c.R) +
			float64(0.587)*float64(c.G) +
			float64(0.114)*float64(c.B),
	)
	return l, nil
}

// Contrast returns whichever of light and dark reads better on top of background.
func Contrast(background, light, dark string) (string, error) {
	l, err := Luminance(background)
	if err != nil {
		return "", err
	}
	if l >= .55 {
		return dark, nil
	}
	return light, nil
}

const (
	White = "#ffffff"
	Black = "#000000"

	// Special
	Empty = ""
	None  = "none"
)
