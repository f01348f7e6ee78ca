package textmeasure_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"oss.terrastruct.com/erd/lib/textmeasure"
)

var txts = []string{
	"customer_id  integer",
	"created_at  timestamp with time zone",
	"organization_members",
	"id  uuid",
}

func TestMonospace(t *testing.T) {
	t.Parallel()

	ruler, err := textmeasure.NewRuler(textmeasure.FONT_SIZE)
	assert.NoError(t, err)

	// Go Mono gives every ASCII rune the same advance.
	for _, txt := range txts {
		w := ruler.Width(txt)
		assert.InDelta(t, float64(len(txt))*ruler.SpaceWidth(), w, 1, txt)
	}
}

func TestGrowsWithText(t *testing.T) {
	t.Parallel()

	ruler, err := textmeasure.NewRuler(0)
	assert.NoError(t, err)

	for _, txt := range txts {
		txt = strings.ReplaceAll(txt, " ", "")
		for i := 1; i < len(txt)-1; i++ {
			assert.Less(t, ruler.Width(txt[:i]), ruler.Width(txt[:i+1]))
		}
	}
}

func TestWideGlyphs(t *testing.T) {
	t.Parallel()

	ruler, err := textmeasure.NewRuler(textmeasure.FONT_SIZE)
	assert.NoError(t, err)

	assert.InDelta(t, ruler.Width("ab"), ruler.Width("🔑"), 1)
	assert.InDelta(t, ruler.Width("ab id"), ruler.Width("🔑 id"), 1)
}

func TestConcurrent(t *testing.T) {
	t.Parallel()

	ruler, err := textmeasure.NewRuler(textmeasure.FONT_SIZE)
	assert.NoError(t, err)

	exp := ruler.Width(txts[1])
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, txt := range txts {
				ruler.Width(txt)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, exp, ruler.Width(txts[1]))
}
