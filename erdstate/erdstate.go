// Package erdstate owns node positions between redraws.
//
// Store is the only place positions change: Reset seeds it from grid placement when
// metadata is loaded, Set moves one node during a drag.
package erdstate

import (
	"sync"

	"oss.terrastruct.com/erd/lib/geo"
)

type Store struct {
	mu        sync.RWMutex
	positions map[string]geo.Point
	dragging  string
}

func NewStore() *Store {
	return &Store{
		positions: make(map[string]geo.Point),
	}
}

// Reset discards every position and drag and replaces them with positions.
func (s *Store) Reset(positions map[string]geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions = make(map[string]geo.Point, len(positions))
	for k, v := range positions {
		s.positions[k] = v
	}
	s.dragging = ""
}

func (s *Store) Get(table string) (geo.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[table]
	return p, ok
}

// Set moves table to (x, y). Unknown tables are ignored and reported.
func (s *Store) Set(table string, x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[table]; !ok {
		return false
	}
	s.positions[table] = geo.Point{X: x, Y: y}
	return true
}

// Snapshot returns a copy of every position.
func (s *Store) Snapshot() map[string]geo.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]geo.Point, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out
}

// BeginDrag marks table as the node being dragged. It paints above all others until
// EndDrag.
func (s *Store) BeginDrag(table string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[table]; !ok {
		return false
	}
	s.dragging = table
	return true
}

func (s *Store) EndDrag(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dragging == table {
		s.dragging = ""
	}
}

func (s *Store) Dragging() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dragging
}

// PaintOrder returns names in the order they should be painted: input order with the
// dragged node moved last.
func (s *Store) PaintOrder(names []string) []string {
	dragging := s.Dragging()

	out := make([]string, 0, len(names))
	found := false
	for _, n := range names {
		if n == dragging {
			found = true
			continue
		}
		out = append(out, n)
	}
	if found {
		out = append(out, dragging)
	}
	return out
}
