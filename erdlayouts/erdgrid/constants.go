package erdgrid

import "oss.terrastruct.com/erd/erdgeom"

const (
	MARGIN_X = 60
	MARGIN_Y = 40
	// NODE_WIDTH is the column pitch. Columns are spaced by this reference width
	// regardless of how wide their nodes turn out.
	NODE_WIDTH = erdgeom.MIN_NODE_WIDTH
)
