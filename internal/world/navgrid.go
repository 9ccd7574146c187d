package world

import "math"

const (
	GridCellSize           = 2.0
	DefaultInteractMinDist = 0.0
	DefaultInteractMaxDist = 2.5
	gridMaxExpandedCells   = 16384
)

var gridNeighborOffsets = [...][2]int{
	{0, -1},
	{1, 0},
	{0, 1},
	{-1, 0},
}

// GridOracle is a walkability-grid reference implementation of NavOracle.
// Cells blocked by obstacles are unwalkable; reachability is a bounded
// breadth-first flood between the cells containing the two endpoints.
type GridOracle struct {
	cols, rows int
	cellSize   float64
	width      float64
	height     float64
	blocked    []bool

	interactMin float64
	interactMax float64

	// scratch for HasPath, reused across queries
	visited  []uint32
	stamp    uint32
	frontier []int
}

func NewGridOracle(width, height float64) *GridOracle {
	cols := int(math.Ceil(width / GridCellSize))
	rows := int(math.Ceil(height / GridCellSize))
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	return &GridOracle{
		cols:        cols,
		rows:        rows,
		cellSize:    GridCellSize,
		width:       width,
		height:      height,
		blocked:     make([]bool, cols*rows),
		interactMin: DefaultInteractMinDist,
		interactMax: DefaultInteractMaxDist,
		visited:     make([]uint32, cols*rows),
		frontier:    make([]int, 0, 256),
	}
}

// SetInteractBand overrides the default stand-point distance band.
func (g *GridOracle) SetInteractBand(min, max float64) {
	if g == nil || max <= 0 || max < min {
		return
	}
	g.interactMin = min
	g.interactMax = max
}

// BlockRect marks every cell overlapping the axis-aligned rectangle as
// unwalkable.
func (g *GridOracle) BlockRect(minX, minY, maxX, maxY float64) {
	if g == nil {
		return
	}
	minCol := int(math.Floor(minX / g.cellSize))
	maxCol := int(math.Floor(maxX / g.cellSize))
	minRow := int(math.Floor(minY / g.cellSize))
	maxRow := int(math.Floor(maxY / g.cellSize))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			if !g.inBounds(col, row) {
				continue
			}
			g.blocked[g.index(col, row)] = true
		}
	}
}

// Blocked reports whether the cell containing the point is unwalkable.
func (g *GridOracle) Blocked(pos Vec3) bool {
	col, row := g.cellAt(pos)
	if !g.inBounds(col, row) {
		return true
	}
	return g.blocked[g.index(col, row)]
}

func (g *GridOracle) HasPath(from, to Vec3, class AgentClass) bool {
	if g == nil {
		return false
	}
	if class == AgentClassFlying {
		return true
	}
	startCol, startRow := g.cellAt(from)
	goalCol, goalRow := g.cellAt(to)
	if !g.inBounds(goalCol, goalRow) {
		return false
	}
	if !g.inBounds(startCol, startRow) || g.blocked[g.index(startCol, startRow)] {
		return false
	}
	goal := g.index(goalCol, goalRow)
	if g.blocked[goal] {
		// The goal cell itself may hold the target object; reaching any
		// walkable neighbor counts.
		if !g.hasWalkableNeighbor(goalCol, goalRow) {
			return false
		}
	}

	g.stamp++
	stamp := g.stamp
	start := g.index(startCol, startRow)
	g.frontier = g.frontier[:0]
	g.frontier = append(g.frontier, start)
	g.visited[start] = stamp
	expanded := 0

	for len(g.frontier) > 0 {
		current := g.frontier[len(g.frontier)-1]
		g.frontier = g.frontier[:len(g.frontier)-1]
		if current == goal {
			return true
		}
		col := current % g.cols
		row := current / g.cols
		if g.blocked[goal] && absInt(col-goalCol)+absInt(row-goalRow) == 1 {
			return true
		}
		expanded++
		if expanded > gridMaxExpandedCells {
			return false
		}
		for _, offset := range gridNeighborOffsets {
			nc := col + offset[0]
			nr := row + offset[1]
			if !g.inBounds(nc, nr) {
				continue
			}
			next := g.index(nc, nr)
			if g.visited[next] == stamp {
				continue
			}
			g.visited[next] = stamp
			if g.blocked[next] && next != goal {
				continue
			}
			g.frontier = append(g.frontier, next)
		}
	}
	return false
}

func (g *GridOracle) LineOfSightBlocked(from, to Vec3, ignore string) bool {
	if g == nil {
		return true
	}
	dist := from.HorizontalDistance(to)
	steps := int(math.Ceil(dist/(g.cellSize*0.5))) + 1
	fromCol, fromRow := g.cellAt(from)
	toCol, toRow := g.cellAt(to)
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		x := from.X + (to.X-from.X)*t
		y := from.Y + (to.Y-from.Y)*t
		col := int(math.Floor(x / g.cellSize))
		row := int(math.Floor(y / g.cellSize))
		// Endpoints occupy their own cells; only cells strictly between
		// them can occlude.
		if col == fromCol && row == fromRow {
			continue
		}
		if col == toCol && row == toRow {
			continue
		}
		if !g.inBounds(col, row) || g.blocked[g.index(col, row)] {
			return true
		}
	}
	return false
}

func (g *GridOracle) ComputeInteractionPoint(target Vec3) (InteractionPoint, bool) {
	if g == nil {
		return InteractionPoint{}, false
	}
	col, row := g.cellAt(target)
	if g.inBounds(col, row) && !g.blocked[g.index(col, row)] {
		return InteractionPoint{Stand: target, MinDist: g.interactMin, MaxDist: g.interactMax}, true
	}
	best := InteractionPoint{}
	bestDist := math.MaxFloat64
	found := false
	for _, offset := range gridNeighborOffsets {
		nc := col + offset[0]
		nr := row + offset[1]
		if !g.inBounds(nc, nr) || g.blocked[g.index(nc, nr)] {
			continue
		}
		stand := g.cellCenter(nc, nr)
		stand.Z = target.Z
		if d := stand.HorizontalDistance(target); d < bestDist {
			bestDist = d
			best = InteractionPoint{Stand: stand, MinDist: g.interactMin, MaxDist: g.interactMax}
			found = true
		}
	}
	return best, found
}

func (g *GridOracle) cellAt(pos Vec3) (int, int) {
	return int(math.Floor(pos.X / g.cellSize)), int(math.Floor(pos.Y / g.cellSize))
}

func (g *GridOracle) cellCenter(col, row int) Vec3 {
	return Vec3{
		X: (float64(col) + 0.5) * g.cellSize,
		Y: (float64(row) + 0.5) * g.cellSize,
	}
}

func (g *GridOracle) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.cols && row < g.rows
}

func (g *GridOracle) index(col, row int) int {
	return row*g.cols + col
}

func (g *GridOracle) hasWalkableNeighbor(col, row int) bool {
	for _, offset := range gridNeighborOffsets {
		nc := col + offset[0]
		nr := row + offset[1]
		if g.inBounds(nc, nr) && !g.blocked[g.index(nc, nr)] {
			return true
		}
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
