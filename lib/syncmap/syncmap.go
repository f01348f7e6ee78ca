// Package syncmap is a typed wrapper of sync.Map for caches filled from many goroutines.
package syncmap

import "sync"

type SyncMap[K comparable, V any] struct {
	m *sync.Map
}

func New[K comparable, V any]() SyncMap[K, V] {
	return SyncMap[K, V]{
		m: &sync.Map{},
	}
}

func (sm SyncMap[K, V]) Set(key K, value V) {
	sm.m.Store(key, value)
}

func (sm SyncMap[K, V]) Lookup(key K) (value V, ok bool) {
	v, has := sm.m.Load(key)
	if !has {
		return value, false
	}
	return v.(V), true
}

// Len walks the map, so it is only meant for tests and debug logs.
func (sm SyncMap[K, V]) Len() int {
	n := 0
	sm.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
