package svg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oss.terrastruct.com/erd/lib/geo"
)

func TestPathData(t *testing.T) {
	t.Parallel()

	pc := NewSVGPathContext()
	pc.StartAt(geo.NewPoint(0, 0))
	pc.C(geo.NewPoint(40.00001, 0), geo.NewPoint(60, 100), geo.NewPoint(100, 100))
	assert.Equal(t, "M 0 0 C 40 0 60 100 100 100", pc.PathData())
	assert.Equal(t, geo.NewPoint(100, 100), pc.Current)
}

func TestEscapeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a&lt;b&gt; &amp; &#34;c&#34;", EscapeText(`a<b> & "c"`))
	assert.Equal(t, "translate(60 40)", Translate(60, 40))
	assert.Equal(t, "", Translate(0, 0))
}
