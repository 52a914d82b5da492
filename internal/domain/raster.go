package domain

import "math"

// Raster is a north-up grid of cell values. Values are stored row-major
// starting with the northernmost row.
type Raster struct {
	Cols, Rows int
	// XLL and YLL are the coordinates of the grid's lower-left corner.
	XLL, YLL float64
	CellSize float64
	NoData   float64
	Values   []float64
	// Proj is the proj4 definition of the grid's reference system; empty
	// when unknown.
	Proj string
}

// At returns the value in column col of row row (row 0 is the top).
func (r *Raster) At(col, row int) float64 {
	return r.Values[row*r.Cols+col]
}

// IsNoData reports whether v marks an empty cell.
func (r *Raster) IsNoData(v float64) bool {
	return math.IsNaN(v) || v == r.NoData
}

// CellCenter returns the map coordinates of a cell centre.
func (r *Raster) CellCenter(col, row int) (x, y float64) {
	x = r.XLL + (float64(col)+0.5)*r.CellSize
	y = r.YLL + (float64(r.Rows-row)-0.5)*r.CellSize
	return x, y
}

// CellRange returns the inclusive column and row ranges whose cell centres
// may fall inside the box [minX,maxX] x [minY,maxY], clipped to the grid.
// ok is false when the box misses the grid.
func (r *Raster) CellRange(minX, minY, maxX, maxY float64) (c0, c1, r0, r1 int, ok bool) {
	c0 = clampInt(int(math.Floor((minX-r.XLL)/r.CellSize-0.5)), 0, r.Cols-1)
	c1 = clampInt(int(math.Ceil((maxX-r.XLL)/r.CellSize-0.5)), 0, r.Cols-1)
	top := r.YLL + float64(r.Rows)*r.CellSize
	r0 = clampInt(int(math.Floor((top-maxY)/r.CellSize-0.5)), 0, r.Rows-1)
	r1 = clampInt(int(math.Ceil((top-minY)/r.CellSize-0.5)), 0, r.Rows-1)
	if maxX < r.XLL || minX > r.XLL+float64(r.Cols)*r.CellSize || maxY < r.YLL || minY > top {
		return 0, 0, 0, 0, false
	}
	return c0, c1, r0, r1, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
