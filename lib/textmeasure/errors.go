package textmeasure

import "errors"

var errMissingSpace = errors.New("font has no space glyph")
