package world

// Grid implements cell-based interest management. Cell size is chosen so a
// 3x3 neighbourhood of cells fully covers the visibility range.
// Accessed only from the game loop goroutine — no locks.

type cellKey struct {
	cx int32
	cz int32
}

// Grid tracks which entities are in which cells of one channel.
type Grid struct {
	cellSize float32
	cells    map[cellKey]map[uint64]struct{} // cellKey → set of entity IDs
}

func NewGrid(cellSize float32) *Grid {
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[uint64]struct{}),
	}
}

func (g *Grid) coord(v float32) int32 {
	c := int32(v / g.cellSize)
	if v < 0 && v != float32(c)*g.cellSize {
		c--
	}
	return c
}

func (g *Grid) key(pos Vec3) cellKey {
	return cellKey{cx: g.coord(pos.X), cz: g.coord(pos.Z)}
}

// Add places an entity into the grid.
func (g *Grid) Add(id uint64, pos Vec3) {
	k := g.key(pos)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[uint64]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an entity out of the grid.
func (g *Grid) Remove(id uint64, pos Vec3) {
	k := g.key(pos)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *Grid) Move(id uint64, oldPos, newPos Vec3) {
	oldK := g.key(oldPos)
	newK := g.key(newPos)
	if oldK == newK {
		return
	}
	g.Remove(id, oldPos)
	g.Add(id, newPos)
}

// Nearby returns all entity IDs in the 3x3 neighbourhood of cells around
// pos. Callers do fine-grained distance filtering when they need it.
func (g *Grid) Nearby(pos Vec3) []uint64 {
	cx := g.coord(pos.X)
	cz := g.coord(pos.Z)
	var result []uint64
	for dx := int32(-1); dx <= 1; dx++ {
		for dz := int32(-1); dz <= 1; dz++ {
			k := cellKey{cx: cx + dx, cz: cz + dz}
			for id := range g.cells[k] {
				result = append(result, id)
			}
		}
	}
	return result
}
