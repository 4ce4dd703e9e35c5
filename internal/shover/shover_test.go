package shover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/layout"
	"topola/internal/routererr"
	"topola/pkg/geometry"
)

func testClearance(layout.LayerID) float64 { return 0.5 }

func TestShove_DisplacesSegOutOfSqueezingLine(t *testing.T) {
	g := layout.New(testClearance)
	a, err := g.AddLooseDot(geometry.Point2D{X: 0, Y: 0}, 0, 0, 2)
	require.NoError(t, err)
	b, err := g.AddLooseDot(geometry.Point2D{X: 10, Y: 0}, 0, 0, 2)
	require.NoError(t, err)
	segID, err := g.AddSeg(a, b, 1, 2)
	require.NoError(t, err)

	s := New(g, Options{}, nil, nil)
	from := geometry.Point2D{X: 0, Y: -1}
	to := geometry.Point2D{X: 10, Y: -1}

	err = s.Shove(layout.PrimitiveRefOfSeg(segID), from, to, 1)
	require.NoError(t, err)

	da, _ := g.Dot(a)
	assert.Greater(t, geometry.SegmentMinDistance(da.Center, from, to), 1.0)
}

func TestShove_FixedEndpointNotShoveable(t *testing.T) {
	g := layout.New(testClearance)
	a, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 2)
	require.NoError(t, err)
	b, err := g.AddFixedDot(geometry.Point2D{X: 10, Y: 0}, 0.5, 0, 2)
	require.NoError(t, err)
	segID, err := g.AddSeg(a, b, 1, 2)
	require.NoError(t, err)

	s := New(g, Options{}, nil, nil)
	err = s.Shove(layout.PrimitiveRefOfSeg(segID), geometry.Point2D{X: 0, Y: -1}, geometry.Point2D{X: 10, Y: -1}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrObstructed)
}

func TestNew_ZeroMaxDepthDefaultsToDefaultMaxDepth(t *testing.T) {
	g := layout.New(testClearance)
	s := New(g, Options{MaxDepth: 0}, nil, nil)
	assert.Equal(t, DefaultMaxDepth, s.opts.MaxDepth)
}
