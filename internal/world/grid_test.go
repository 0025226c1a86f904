package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridNearbySameCell(t *testing.T) {
	g := NewGrid(50)
	g.Add(1, Vec3{X: 10, Z: 10})
	g.Add(2, Vec3{X: 40, Z: 40})

	assert.ElementsMatch(t, []uint64{1, 2}, g.Nearby(Vec3{X: 25, Z: 25}))
}

func TestGridNearbyAdjacentCells(t *testing.T) {
	g := NewGrid(50)
	g.Add(1, Vec3{X: 10, Z: 10})   // cell (0,0)
	g.Add(2, Vec3{X: 60, Z: 10})   // cell (1,0)
	g.Add(3, Vec3{X: -10, Z: -10}) // cell (-1,-1)

	assert.ElementsMatch(t, []uint64{1, 2, 3}, g.Nearby(Vec3{X: 10, Z: 10}))
}

func TestGridFarEntitiesExcluded(t *testing.T) {
	g := NewGrid(50)
	g.Add(1, Vec3{X: 10, Z: 10})
	g.Add(2, Vec3{X: 200, Z: 200}) // cell (4,4), outside the 3x3 neighbourhood

	assert.ElementsMatch(t, []uint64{1}, g.Nearby(Vec3{X: 10, Z: 10}))
}

func TestGridMoveAcrossCells(t *testing.T) {
	g := NewGrid(50)
	old := Vec3{X: 10, Z: 10}
	g.Add(1, old)

	neu := Vec3{X: 310, Z: 310}
	g.Move(1, old, neu)

	assert.Empty(t, g.Nearby(old))
	assert.ElementsMatch(t, []uint64{1}, g.Nearby(neu))
}

func TestGridNegativeCoordinates(t *testing.T) {
	g := NewGrid(50)
	g.Add(1, Vec3{X: -1, Z: -1})
	g.Add(2, Vec3{X: -49, Z: -49})

	// Both sit in cell (-1,-1); a lookup from just across the origin still
	// sees them through the neighbourhood.
	assert.ElementsMatch(t, []uint64{1, 2}, g.Nearby(Vec3{X: 1, Z: 1}))
}

func TestGridRemoveCleansEmptyCell(t *testing.T) {
	g := NewGrid(50)
	pos := Vec3{X: 10, Z: 10}
	g.Add(1, pos)
	g.Remove(1, pos)

	assert.Empty(t, g.cells)
}
