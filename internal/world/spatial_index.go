package world

import "math"

const defaultSpatialCellSize = 8.0

type cellKey struct {
	X int
	Y int
}

type spatialEntry struct {
	cell cellKey
	pos  Vec3
}

// SpatialIndex is a uniform cell-hash over point objects keyed by string ID.
// Queries fill a caller-owned buffer and never allocate past its capacity, so
// the buffer's cap is a hard ceiling on candidates returned per query.
type SpatialIndex struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]string
	entries     map[string]spatialEntry
}

func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = defaultSpatialCellSize
	}
	return &SpatialIndex{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]string),
		entries:     make(map[string]spatialEntry),
	}
}

// Upsert inserts the object or moves it to a new cell.
func (idx *SpatialIndex) Upsert(id string, pos Vec3) {
	if idx == nil || id == "" {
		return
	}
	cell := idx.cellFor(pos)
	if entry, ok := idx.entries[id]; ok {
		if entry.cell == cell {
			idx.entries[id] = spatialEntry{cell: cell, pos: pos}
			return
		}
		idx.removeFromCell(id, entry.cell)
	}
	idx.entries[id] = spatialEntry{cell: cell, pos: pos}
	idx.cells[cell] = append(idx.cells[cell], id)
}

func (idx *SpatialIndex) Remove(id string) {
	if idx == nil || id == "" {
		return
	}
	entry, ok := idx.entries[id]
	if !ok {
		return
	}
	idx.removeFromCell(id, entry.cell)
	delete(idx.entries, id)
}

func (idx *SpatialIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// QueryCircle appends the IDs of objects within the horizontal radius of
// center into buf[:0] and returns the filled slice. Results are capped at
// cap(buf); extra candidates are dropped, never grown.
func (idx *SpatialIndex) QueryCircle(center Vec3, radius float64, buf []string) []string {
	out := buf[:0]
	if idx == nil || radius <= 0 || cap(buf) == 0 {
		return out
	}
	minCol := int(math.Floor((center.X - radius) * idx.invCellSize))
	maxCol := int(math.Floor((center.X + radius) * idx.invCellSize))
	minRow := int(math.Floor((center.Y - radius) * idx.invCellSize))
	maxRow := int(math.Floor((center.Y + radius) * idx.invCellSize))
	radiusSq := radius * radius

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, id := range idx.cells[cellKey{X: col, Y: row}] {
				entry := idx.entries[id]
				dx := entry.pos.X - center.X
				dy := entry.pos.Y - center.Y
				if dx*dx+dy*dy > radiusSq {
					continue
				}
				if len(out) == cap(buf) {
					return out
				}
				out = append(out, id)
			}
		}
	}
	return out
}

func (idx *SpatialIndex) cellFor(pos Vec3) cellKey {
	return cellKey{
		X: int(math.Floor(pos.X * idx.invCellSize)),
		Y: int(math.Floor(pos.Y * idx.invCellSize)),
	}
}

func (idx *SpatialIndex) removeFromCell(id string, cell cellKey) {
	bucket := idx.cells[cell]
	for i := range bucket {
		if bucket[i] != id {
			continue
		}
		bucket[i] = bucket[len(bucket)-1]
		bucket = bucket[:len(bucket)-1]
		break
	}
	if len(bucket) == 0 {
		delete(idx.cells, cell)
	} else {
		idx.cells[cell] = bucket
	}
}
