package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

func EscapeText(text string) string {
	buf := new(bytes.Buffer)
	_ = xml.EscapeText(buf, []byte(text))
	return buf.String()
}

// Num formats a coordinate the way it is written into attributes.
func Num(f float64) string {
	return fmt.Sprintf("%v", chopPrecision(f))
}

// Translate returns a transform attribute value, or "" for the identity.
func Translate(x, y float64) string {
	if x == 0 && y == 0 {
		return ""
	}
	return fmt.Sprintf("translate(%v %v)", chopPrecision(x), chopPrecision(y))
}
