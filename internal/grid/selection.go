// Package grid tracks row/column selection over a result set and serializes
// selected (or full) data to CSV and JSON for copy and download.
package grid

import "sort"

// Mode says what kind of grid elements are selected. Row and column
// selection are mutually exclusive.
type Mode int

const (
	ModeNone Mode = iota
	ModeRow
	ModeColumn
)

// Selection is the grid's selection state machine. The zero value is an
// empty selection.
type Selection struct {
	mode    Mode
	indices map[int]struct{}
	anchor  int
}

// Mode returns the current selection mode.
func (s *Selection) Mode() Mode {
	if len(s.indices) == 0 {
		return ModeNone
	}
	return s.mode
}

// Rows returns the selected row indices in ascending order, or nil when the
// selection is not in row mode.
func (s *Selection) Rows() []int {
	if s.Mode() != ModeRow {
		return nil
	}
	return s.sorted()
}

// Columns returns the selected column indices in ascending order, or nil
// when the selection is not in column mode.
func (s *Selection) Columns() []int {
	if s.Mode() != ModeColumn {
		return nil
	}
	return s.sorted()
}

// Click replaces the selection with a single element, switching mode if
// needed. The clicked index becomes the shift anchor.
func (s *Selection) Click(mode Mode, idx int) {
	s.reset(mode)
	s.indices[idx] = struct{}{}
	s.anchor = idx
}

// CtrlClick toggles membership of one element. A ctrl-click in the other
// mode behaves like a plain click there, keeping the modes exclusive.
func (s *Selection) CtrlClick(mode Mode, idx int) {
	if s.Mode() != mode {
		s.Click(mode, idx)
		return
	}
	if _, ok := s.indices[idx]; ok {
		delete(s.indices, idx)
	} else {
		s.indices[idx] = struct{}{}
		s.anchor = idx
	}
}

// ShiftClick selects the inclusive range between the last anchor and the
// clicked index. Without a prior anchor in this mode it degrades to a click.
func (s *Selection) ShiftClick(mode Mode, idx int) {
	if s.Mode() != mode {
		s.Click(mode, idx)
		return
	}
	lo, hi := s.anchor, idx
	if lo > hi {
		lo, hi = hi, lo
	}
	s.indices = make(map[int]struct{}, hi-lo+1)
	for i := lo; i <= hi; i++ {
		s.indices[i] = struct{}{}
	}
	s.mode = mode
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mode = ModeNone
	s.indices = nil
	s.anchor = 0
}

// Contains reports membership for an element in the given mode.
func (s *Selection) Contains(mode Mode, idx int) bool {
	if s.Mode() != mode {
		return false
	}
	_, ok := s.indices[idx]
	return ok
}

func (s *Selection) reset(mode Mode) {
	s.mode = mode
	s.indices = make(map[int]struct{})
}

func (s *Selection) sorted() []int {
	out := make([]int, 0, len(s.indices))
	for i := range s.indices {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
