// Package ascgrid reads ESRI ASCII grid rasters.
package ascgrid

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// DefaultNoData applies when the header has no NODATA_value line.
const DefaultNoData = -9999

// Load reads the grid at path. proj4 is recorded as the raster's reference
// system.
func Load(path, proj4 string) (*domain.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid: %w", err)
	}
	defer f.Close()

	r, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	r.Proj = proj4
	return r, nil
}

// Read parses an ASCII grid. Centre-registered headers (xllcenter,
// yllcenter) are converted to corner registration.
func Read(rd io.Reader) (*domain.Raster, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if !isHeaderKey(key) {
			first = tok
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("header %s has no value", tok)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", tok, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	r := &domain.Raster{NoData: DefaultNoData}
	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, fmt.Errorf("missing %s header", k)
		}
	}
	r.Cols = int(header["ncols"])
	r.Rows = int(header["nrows"])
	r.CellSize = header["cellsize"]
	if r.Cols <= 0 || r.Rows <= 0 || r.CellSize <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d cellsize %g", r.Cols, r.Rows, r.CellSize)
	}
	if v, ok := header["nodata_value"]; ok {
		r.NoData = v
	}

	x, xc := header["xllcorner"]
	if !xc {
		c, ok := header["xllcenter"]
		if !ok {
			return nil, fmt.Errorf("missing xllcorner header")
		}
		x = c - r.CellSize/2
	}
	y, yc := header["yllcorner"]
	if !yc {
		c, ok := header["yllcenter"]
		if !ok {
			return nil, fmt.Errorf("missing yllcorner header")
		}
		y = c - r.CellSize/2
	}
	r.XLL, r.YLL = x, y

	n := r.Cols * r.Rows
	r.Values = make([]float64, 0, n)
	tok := first
	for tok != "" || sc.Scan() {
		if tok == "" {
			tok = sc.Text()
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", len(r.Values), err)
		}
		r.Values = append(r.Values, v)
		tok = ""
		if len(r.Values) > n {
			return nil, fmt.Errorf("more than %d cells", n)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(r.Values) != n {
		return nil, fmt.Errorf("got %d cells, want %d", len(r.Values), n)
	}
	if math.IsNaN(r.NoData) {
		return nil, fmt.Errorf("NODATA_value must be a number")
	}
	return r, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}
