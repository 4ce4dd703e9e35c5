package spatialindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/routererr"
	"topola/pkg/geometry"
)

func TestInsertAndQuery_FindsOverlappingBox(t *testing.T) {
	idx := New()
	idx.Insert(1, geometry.Rect{X: 0, Y: 0, Width: 2, Height: 2})
	idx.Insert(2, geometry.Rect{X: 10, Y: 10, Width: 2, Height: 2})

	found := idx.Query(geometry.Rect{X: 0, Y: 0, Width: 1, Height: 1})
	assert.Equal(t, []ID{1}, found)
	assert.Equal(t, 2, idx.Len())
}

func TestRemove_UnknownIDErrors(t *testing.T) {
	idx := New()
	err := idx.Remove(99)
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrUnknownID)
}

func TestRemove_KnownIDDropsFromQuery(t *testing.T) {
	idx := New()
	idx.Insert(1, geometry.Rect{X: 0, Y: 0, Width: 2, Height: 2})

	require.NoError(t, idx.Remove(1))
	assert.Empty(t, idx.Query(geometry.Rect{X: 0, Y: 0, Width: 2, Height: 2}))
	assert.Equal(t, 0, idx.Len())
}

func TestUpdate_MovesPrimitiveToNewBounds(t *testing.T) {
	idx := New()
	idx.Insert(1, geometry.Rect{X: 0, Y: 0, Width: 1, Height: 1})

	require.NoError(t, idx.Update(1, geometry.Rect{X: 20, Y: 20, Width: 1, Height: 1}))
	assert.Empty(t, idx.Query(geometry.Rect{X: 0, Y: 0, Width: 1, Height: 1}))
	assert.Equal(t, []ID{1}, idx.Query(geometry.Rect{X: 20, Y: 20, Width: 1, Height: 1}))
}

func TestUpdate_UnknownIDErrors(t *testing.T) {
	idx := New()
	err := idx.Update(7, geometry.Rect{X: 0, Y: 0, Width: 1, Height: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrUnknownID)
}

func TestNearestK_ReturnsClosestFirst(t *testing.T) {
	idx := New()
	idx.Insert(1, geometry.Rect{X: 0, Y: 0, Width: 0, Height: 0})
	idx.Insert(2, geometry.Rect{X: 5, Y: 0, Width: 0, Height: 0})
	idx.Insert(3, geometry.Rect{X: 1, Y: 0, Width: 0, Height: 0})

	found := idx.NearestK(geometry.Point2D{X: 0, Y: 0}, 2)
	require.Len(t, found, 2)
	assert.Equal(t, ID(1), found[0])
}

func TestNearestK_ZeroOrNegativeKReturnsNil(t *testing.T) {
	idx := New()
	idx.Insert(1, geometry.Rect{X: 0, Y: 0, Width: 0, Height: 0})
	assert.Nil(t, idx.NearestK(geometry.Point2D{}, 0))
	assert.Nil(t, idx.NearestK(geometry.Point2D{}, -1))
}

func TestBounds_ReportsLastRecordedAABB(t *testing.T) {
	idx := New()
	idx.Insert(1, geometry.Rect{X: 1, Y: 2, Width: 3, Height: 4})

	b, ok := idx.Bounds(1)
	require.True(t, ok)
	assert.Equal(t, geometry.Rect{X: 1, Y: 2, Width: 3, Height: 4}, b)

	_, ok = idx.Bounds(2)
	assert.False(t, ok)
}
