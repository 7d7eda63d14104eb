package road

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosMod(t *testing.T) {
	assert.Equal(t, 3, posMod(3, 20))
	assert.Equal(t, 19, posMod(-1, 20))
	assert.Equal(t, 0, posMod(20, 20))
	assert.Equal(t, 5, posMod(45, 20))
	assert.Equal(t, 15, posMod(-25, 20))
}

func TestRectOccupierEdges(t *testing.T) {
	occ := RectOccupier{Front: 10, Right: 5, Width: 2, Length: 3}

	assert.Equal(t, 4, occ.Left())
	assert.Equal(t, 8, occ.Back())
	assert.Equal(t, Coord{Lat: 4, Long: 8}, occ.BackLeft())
}

func TestRectOccupierCells(t *testing.T) {
	occ := RectOccupier{Front: 3, Right: 3, Width: 2, Length: 2}

	cells := occ.Cells(20)
	assert.ElementsMatch(t, []Coord{
		{Lat: 2, Long: 2}, {Lat: 2, Long: 3},
		{Lat: 3, Long: 2}, {Lat: 3, Long: 3},
	}, cells)
}

func TestRectOccupierCellsWrap(t *testing.T) {
	// An occupier straddling the seam wraps its trailing longs.
	occ := RectOccupier{Front: 0, Right: 3, Width: 2, Length: 2}

	cells := occ.Cells(20)
	assert.ElementsMatch(t, []Coord{
		{Lat: 2, Long: 19}, {Lat: 2, Long: 0},
		{Lat: 3, Long: 19}, {Lat: 3, Long: 0},
	}, cells)
}

func TestRectOccupierFrontEdge(t *testing.T) {
	occ := RectOccupier{Front: 21, Right: 4, Width: 3, Length: 2}

	edge := occ.FrontEdge(20)
	assert.ElementsMatch(t, []Coord{
		{Lat: 2, Long: 1}, {Lat: 3, Long: 1}, {Lat: 4, Long: 1},
	}, edge)
}

func TestRectOccupierWithinRoad(t *testing.T) {
	tests := []struct {
		name   string
		occ    RectOccupier
		width  int
		within bool
	}{
		{"fits", RectOccupier{Right: 5, Width: 2, Length: 1}, 6, true},
		{"right edge off", RectOccupier{Right: 6, Width: 2, Length: 1}, 6, false},
		{"left edge off", RectOccupier{Right: 0, Width: 2, Length: 1}, 6, false},
		{"exactly spans", RectOccupier{Right: 5, Width: 6, Length: 1}, 6, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.within, tc.occ.WithinRoad(tc.width))
		})
	}
}

func TestRectOccupierOverlapsMotorLane(t *testing.T) {
	// Motor lane is lats [0, 3).
	assert.True(t, RectOccupier{Right: 3, Width: 2}.OverlapsMotorLane(3))
	assert.False(t, RectOccupier{Right: 4, Width: 2}.OverlapsMotorLane(3))
	assert.True(t, RectOccupier{Right: 2, Width: 1}.OverlapsMotorLane(3))
}
