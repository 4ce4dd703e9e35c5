package overlay

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/layout"
	"topola/internal/navmesh"
	"topola/internal/router"
	"topola/internal/shover"
	"topola/pkg/geometry"
)

func testClearance(layout.LayerID) float64 { return 0.5 }

func TestBoundingBox_EnclosesAllDotsOnLayer(t *testing.T) {
	g := layout.New(testClearance)
	_, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 10, Y: 4}, 0.5, 0, 1)
	require.NoError(t, err)

	box := BoundingBox(g, 0)
	assert.Equal(t, geometry.Rect{X: 0, Y: 0, Width: 10, Height: 4}, box)
}

func TestConvexOutline_IgnoresLooseDots(t *testing.T) {
	g := layout.New(testClearance)
	a, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geometry.Point2D{X: 4, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	c, err := g.AddFixedDot(geometry.Point2D{X: 2, Y: 4}, 0.5, 0, 1)
	require.NoError(t, err)

	bands := layout.NewBands()
	mesh := navmesh.New(0, nil)
	r := router.New(g, bands, mesh, nil, nil, shover.Options{})
	_, err = r.Route(a, b, router.Options{Width: 0.1})
	require.NoError(t, err)

	hull := ConvexOutline(g, 0)
	assert.Len(t, hull, 3)
	_ = c
}

func TestRatsnest_ReportsUnconnectedPairAndSkipsRoutedOne(t *testing.T) {
	g := layout.New(testClearance)
	a, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geometry.Point2D{X: 4, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 2, Y: 5}, 0.5, 0, 1)
	require.NoError(t, err)

	lines := Ratsnest(g, 0, nil)
	require.Len(t, lines, 2)
	assert.Equal(t, layout.NetID(1), lines[0].Net)

	bands := layout.NewBands()
	mesh := navmesh.New(0, nil)
	r := router.New(g, bands, mesh, nil, nil, shover.Options{})
	_, err = r.Route(a, b, router.Options{Width: 0.1})
	require.NoError(t, err)

	linesAfter := Ratsnest(g, 0, nil)
	assert.Len(t, linesAfter, 1)
}

func TestSnapshot_GroupsPolylinesAndTerminalsByNet(t *testing.T) {
	g := layout.New(testClearance)
	a, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geometry.Point2D{X: 4, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 2, Y: 5}, 0.5, 0, 1)
	require.NoError(t, err)

	bands := layout.NewBands()
	mesh := navmesh.New(0, nil)
	r := router.New(g, bands, mesh, nil, nil, shover.Options{})
	_, err = r.Route(a, b, router.Options{Width: 0.1})
	require.NoError(t, err)

	snaps := Snapshot(g, bands)
	require.Len(t, snaps, 1)
	assert.Equal(t, layout.NetID(1), snaps[0].Net)
	require.Len(t, snaps[0].Polylines, 1)
	assert.Len(t, snaps[0].Terminals, 3)
}

func TestDetourRatio_StraightBandIsOne(t *testing.T) {
	g := layout.New(testClearance)
	a, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geometry.Point2D{X: 4, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 2, Y: 5}, 0.5, 0, 1)
	require.NoError(t, err)

	bands := layout.NewBands()
	mesh := navmesh.New(0, nil)
	r := router.New(g, bands, mesh, nil, nil, shover.Options{})
	_, err = r.Route(a, b, router.Options{Width: 0.1})
	require.NoError(t, err)

	end, ok := NewDotAndEnd(g, a, b)
	require.True(t, ok)
	assert.InDelta(t, 1.0, DetourRatio(g, end), 1e-6)
}

func TestNavmeshWireframe_EmitsThreeEdgesPerTriangle(t *testing.T) {
	g := layout.New(testClearance)
	_, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 4, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 2, Y: 5}, 0.5, 0, 1)
	require.NoError(t, err)

	mesh := navmesh.New(0, nil)
	edges := NavmeshWireframe(g, mesh)
	assert.Len(t, edges, 3*len(mesh.Triangles(g)))
}

func TestRenderPNG_WritesDecodablePNGWithConfiguredDimensions(t *testing.T) {
	g := layout.New(testClearance)
	a, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geometry.Point2D{X: 4, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	_, err = g.AddFixedDot(geometry.Point2D{X: 2, Y: 5}, 0.5, 0, 1)
	require.NoError(t, err)

	bands := layout.NewBands()
	mesh := navmesh.New(0, nil)
	r := router.New(g, bands, mesh, nil, nil, shover.Options{})
	_, err = r.Route(a, b, router.Options{Width: 0.1})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = RenderPNG(&buf, g, 0, RenderOptions{Width: 100, Height: 80, Scale: 1})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}
