package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWardID(t *testing.T) {
	tests := []struct {
		raw  string
		want WardID
	}{
		{"3", "3"},
		{"3.0", "3"},
		{" 12 ", "12"},
		{"7.5", "7.5"},
		{"Ward A", "Ward A"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWardID(tt.raw))
		})
	}
}

func TestWardTable_SetGetOrder(t *testing.T) {
	tbl := NewWardTable("a")
	tbl.Set("2", "a", 1)
	tbl.Set("1", "b", 2)
	tbl.AddWard("3")

	assert.Equal(t, []WardID{"2", "1", "3"}, tbl.Wards())
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	assert.Equal(t, 3, tbl.Len())

	v, ok := tbl.Get("1", "b")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = tbl.Get("1", "a")
	assert.False(t, ok, "absent cell is missing, not zero")
	_, ok = tbl.Get("9", "a")
	assert.False(t, ok)
}

func TestWardTable_CloneIsIndependent(t *testing.T) {
	tbl := NewWardTable("a")
	tbl.Set("1", "a", 1)
	c := tbl.Clone()
	c.Set("1", "a", 5)
	v, _ := tbl.Get("1", "a")
	assert.Equal(t, 1.0, v)
}

func TestWardTable_Select(t *testing.T) {
	tbl := NewWardTable("a", "b", "c")
	tbl.Set("1", "a", 1)
	tbl.Set("1", "c", 3)

	out, err := tbl.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, out.Columns())
	assert.Equal(t, Record{"a": 1, "c": 3}, out.Row("1"))

	_, err = tbl.Select("z")
	require.Error(t, err)
}

func TestWardTable_Fill(t *testing.T) {
	tbl := NewWardTable("a", "b")
	tbl.Set("1", "a", 1)
	tbl.Set("2", "b", 2)

	keep := tbl.Clone()
	n, err := keep.Fill(KeepMissing, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, keep.Has("3"))
	_, ok := keep.Get("1", "b")
	assert.False(t, ok)

	_, err = tbl.Clone().Fill(ErrorOnMissing, "a", "b")
	require.Error(t, err)

	n, err = tbl.Fill(FillZero, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	v, ok := tbl.Get("1", "b")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestOuterJoin(t *testing.T) {
	left := NewWardTable("pop")
	left.Set("1", "pop", 100)
	left.Set("2", "pop", 50)
	right := NewWardTable("students")
	right.Set("2", "students", 10)
	right.Set("3", "students", 4)

	out, missing, err := OuterJoin(left, right, FillZero)
	require.NoError(t, err)
	assert.Equal(t, []WardID{"1", "2", "3"}, out.Wards())
	assert.Equal(t, 2, missing)
	assert.Equal(t, Record{"pop": 100, "students": 0}, out.Row("1"))
	assert.Equal(t, Record{"pop": 0, "students": 4}, out.Row("3"))

	_, _, err = OuterJoin(left, right, ErrorOnMissing)
	require.Error(t, err)

	kept, missing, err := OuterJoin(left, right, KeepMissing)
	require.NoError(t, err)
	assert.Equal(t, 2, missing)
	_, ok := kept.Get("3", "pop")
	assert.False(t, ok)
}

func TestOuterJoin_ColumnCollision(t *testing.T) {
	left := NewWardTable("pop")
	right := NewWardTable("pop")
	_, _, err := OuterJoin(left, right, FillZero)
	require.Error(t, err)
}

func TestWardTable_ToTable(t *testing.T) {
	tbl := NewWardTable("a", "b")
	tbl.Set("1", "a", 1)
	tbl.Set("2", "b", 2)

	out := tbl.ToTable("Ward")
	assert.Equal(t, "Ward", out.Index)
	assert.Equal(t, []string{"a", "b"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "1", out.Rows[0].Key)
	assert.True(t, math.IsNaN(out.Rows[0].Values[1]))

	v, ok := out.Value("2", "b")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	_, ok = out.Value("2", "a")
	assert.False(t, ok)
}
