package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClickReplacesSelection(t *testing.T) {
	var s Selection
	s.Click(ModeRow, 3)
	s.Click(ModeRow, 5)

	assert.Equal(t, ModeRow, s.Mode())
	assert.Equal(t, []int{5}, s.Rows())
}

func TestRowSelectionClearsColumns(t *testing.T) {
	var s Selection
	s.Click(ModeColumn, 1)
	s.CtrlClick(ModeColumn, 2)
	assert.Equal(t, []int{1, 2}, s.Columns())

	s.Click(ModeRow, 0)
	assert.Equal(t, ModeRow, s.Mode())
	assert.Nil(t, s.Columns())
	assert.Equal(t, []int{0}, s.Rows())
}

func TestCtrlClickToggles(t *testing.T) {
	var s Selection
	s.Click(ModeRow, 1)
	s.CtrlClick(ModeRow, 3)
	assert.Equal(t, []int{1, 3}, s.Rows())

	s.CtrlClick(ModeRow, 1)
	assert.Equal(t, []int{3}, s.Rows())

	// Toggling the last member empties the selection entirely.
	s.CtrlClick(ModeRow, 3)
	assert.Equal(t, ModeNone, s.Mode())
}

func TestCtrlClickAcrossModesActsLikeClick(t *testing.T) {
	var s Selection
	s.Click(ModeRow, 4)
	s.CtrlClick(ModeColumn, 2)

	assert.Equal(t, ModeColumn, s.Mode())
	assert.Equal(t, []int{2}, s.Columns())
	assert.Nil(t, s.Rows())
}

func TestShiftClickSelectsRange(t *testing.T) {
	var s Selection
	s.Click(ModeRow, 2)
	s.ShiftClick(ModeRow, 5)
	assert.Equal(t, []int{2, 3, 4, 5}, s.Rows())

	// Reverse direction from the same anchor.
	s.Click(ModeRow, 4)
	s.ShiftClick(ModeRow, 1)
	assert.Equal(t, []int{1, 2, 3, 4}, s.Rows())
}

func TestShiftClickAfterCtrlClickAnchors(t *testing.T) {
	var s Selection
	s.Click(ModeRow, 0)
	s.CtrlClick(ModeRow, 6)
	s.ShiftClick(ModeRow, 8)

	// Range runs from the last anchor (6) to 8; earlier members are dropped.
	assert.Equal(t, []int{6, 7, 8}, s.Rows())
}

func TestShiftClickAcrossModesActsLikeClick(t *testing.T) {
	var s Selection
	s.Click(ModeColumn, 3)
	s.ShiftClick(ModeRow, 5)

	assert.Equal(t, []int{5}, s.Rows())
	assert.Nil(t, s.Columns())
}

func TestSelectionExclusivityUnderAllSequences(t *testing.T) {
	// Property: after any sequence of operations, at most one mode has a
	// non-empty index set.
	type op struct {
		kind string
		mode Mode
		idx  int
	}
	seqs := [][]op{
		{{"click", ModeRow, 1}, {"ctrl", ModeColumn, 2}, {"shift", ModeColumn, 4}},
		{{"shift", ModeRow, 3}, {"ctrl", ModeRow, 5}, {"click", ModeColumn, 0}},
		{{"ctrl", ModeColumn, 1}, {"ctrl", ModeColumn, 1}, {"shift", ModeRow, 2}},
	}

	for _, seq := range seqs {
		var s Selection
		for _, o := range seq {
			switch o.kind {
			case "click":
				s.Click(o.mode, o.idx)
			case "ctrl":
				s.CtrlClick(o.mode, o.idx)
			case "shift":
				s.ShiftClick(o.mode, o.idx)
			}
			rows, cols := s.Rows(), s.Columns()
			assert.False(t, len(rows) > 0 && len(cols) > 0,
				"rows and columns selected simultaneously after %+v", o)
		}
	}
}

func TestClear(t *testing.T) {
	var s Selection
	s.Click(ModeRow, 1)
	s.Clear()

	assert.Equal(t, ModeNone, s.Mode())
	assert.Nil(t, s.Rows())
	assert.False(t, s.Contains(ModeRow, 1))
}

func TestContains(t *testing.T) {
	var s Selection
	s.Click(ModeColumn, 2)

	assert.True(t, s.Contains(ModeColumn, 2))
	assert.False(t, s.Contains(ModeColumn, 3))
	assert.False(t, s.Contains(ModeRow, 2))
}
