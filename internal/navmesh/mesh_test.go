package navmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/layout"
	"topola/pkg/geometry"
)

func testClearance(layout.LayerID) float64 { return 0.5 }

func TestMesh_RebuildsLazilyOnInvalidate(t *testing.T) {
	g := layout.New(testClearance)
	_, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 10, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 5, Y: 10}, 1, 0, 1)
	require.NoError(t, err)

	m := New(0, nil)
	tris := m.Triangles(g)
	require.NotEmpty(t, tris)

	// Without Invalidate, a second call returns the same cached triangles.
	again := m.Triangles(g)
	assert.Equal(t, tris, again)

	_, err = g.AddFixedDot(geometry.Point2D{X: 5, Y: -10}, 1, 0, 1)
	require.NoError(t, err)
	m.Invalidate()
	rebuilt := m.Triangles(g)
	assert.NotEqual(t, len(tris), len(rebuilt))
}

func TestMesh_LocateFindsContainingTriangle(t *testing.T) {
	g := layout.New(testClearance)
	_, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 10, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 5, Y: 10}, 1, 0, 1)
	require.NoError(t, err)

	m := New(0, nil)
	inside := m.Locate(g, geometry.Point2D{X: 5, Y: 3})
	assert.GreaterOrEqual(t, inside, int64(0))

	outside := m.Locate(g, geometry.Point2D{X: 1000, Y: 1000})
	assert.Equal(t, int64(-1), outside)
}

func TestMesh_ChannelWidthReturnsSharedEdgeLength(t *testing.T) {
	g := layout.New(testClearance)
	_, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 10, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 5, Y: 10}, 1, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 5, Y: -10}, 1, 0, 1)
	require.NoError(t, err)

	m := New(0, nil)
	tris := m.Triangles(g)
	require.Len(t, tris, 2)

	w, ok := m.ChannelWidth(g, tris[0].ID, tris[1].ID)
	assert.True(t, ok)
	assert.Greater(t, w, 0.0)
}

func TestDefaultConvexCost_ZeroBelowResidualPositiveAbove(t *testing.T) {
	m := New(0, nil)
	assert.Equal(t, 0.0, m.Cost(-1))
	assert.Equal(t, 4.0, m.Cost(2))
}
