package ascgrid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const grid = `ncols 3
nrows 2
xllcorner 100
yllcorner 200
cellsize 30
NODATA_value -1
1 2 3
4 -1 6
`

func TestRead(t *testing.T) {
	r, err := Read(strings.NewReader(grid))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Cols)
	assert.Equal(t, 2, r.Rows)
	assert.InDelta(t, 100, r.XLL, 1e-9)
	assert.InDelta(t, 30, r.CellSize, 1e-9)
	assert.InDelta(t, 6, r.At(2, 1), 1e-9)
	assert.True(t, r.IsNoData(r.At(1, 1)))

	x, y := r.CellCenter(0, 0)
	assert.InDelta(t, 115, x, 1e-9)
	assert.InDelta(t, 245, y, 1e-9)
}

func TestRead_CenterRegistration(t *testing.T) {
	r, err := Read(strings.NewReader("ncols 1\nnrows 1\nxllcenter 15\nyllcenter 15\ncellsize 30\n7\n"))
	require.NoError(t, err)
	assert.InDelta(t, 0, r.XLL, 1e-9)
	assert.InDelta(t, 0, r.YLL, 1e-9)
	assert.InDelta(t, DefaultNoData, r.NoData, 1e-9)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"missing header", "ncols 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1\n", "missing nrows"},
		{"short", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1\n", "got 1 cells, want 2"},
		{"long", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n", "more than 1 cells"},
		{"bad cell", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nx\n", "cell 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_SetsProjection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lulc.asc")
	require.NoError(t, os.WriteFile(path, []byte(grid), 0o600))

	r, err := Load(path, "+proj=utm +zone=45 +datum=WGS84")
	require.NoError(t, err)
	assert.Equal(t, "+proj=utm +zone=45 +datum=WGS84", r.Proj)
}
