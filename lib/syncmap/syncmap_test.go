package syncmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncMap(t *testing.T) {
	t.Parallel()

	sm := New[string, float64]()
	_, ok := sm.Lookup("orders")
	assert.False(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.Set("orders", 246)
			sm.Set("customers", 220)
		}()
	}
	wg.Wait()

	w, ok := sm.Lookup("orders")
	assert.True(t, ok)
	assert.Equal(t, 246., w)
	assert.Equal(t, 2, sm.Len())
}
