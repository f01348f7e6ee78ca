package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	t.Parallel()

	p := NewPoint(0, 0).Interpolate(NewPoint(10, -20), 0.25)
	assert.Equal(t, NewPoint(2.5, -5), p)
	assert.Equal(t, 5., NewPoint(0, 0).DistanceTo(NewPoint(3, 4)))
	assert.Equal(t, NewPoint(4, 6), NewPoint(1, 2).Add(3, 4))
}

func TestBoxUnion(t *testing.T) {
	t.Parallel()

	b := NewBox(NewPoint(0, 0), 10, 10).Union(NewBox(NewPoint(20, -5), 5, 5))
	assert.Equal(t, NewPoint(0, -5), b.TopLeft)
	assert.Equal(t, 25., b.Width)
	assert.Equal(t, 15., b.Height)

	var nilBox *Box
	assert.Equal(t, 10., nilBox.Union(NewBox(NewPoint(1, 1), 10, 3)).Width)
}
