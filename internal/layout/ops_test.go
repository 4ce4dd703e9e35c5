package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/routererr"
	"topola/pkg/geometry"
)

func testClearance(LayerID) float64 { return 1 }

func TestAddFixedDot_RejectsCollisionWithOtherNet(t *testing.T) {
	g := New(testClearance)

	_, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)

	_, err = g.AddFixedDot(geometry.Point2D{X: 1, Y: 0}, 1, 0, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
	var collide *WouldCollide
	assert.True(t, errors.As(err, &collide))
}

func TestAddFixedDot_SameNetDoesNotCollide(t *testing.T) {
	g := New(testClearance)

	a, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)

	b, err := g.AddFixedDot(geometry.Point2D{X: 1, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAddSeg_RejectsDifferentLayers(t *testing.T) {
	g := New(testClearance)
	a, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	b, _ := g.AddFixedDot(geometry.Point2D{X: 10, Y: 0}, 1, 1, 1)

	_, err := g.AddSeg(a, b, 0.5, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
}

func TestAddSeg_RejectsIdenticalEndpoints(t *testing.T) {
	g := New(testClearance)
	a, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)

	_, err := g.AddSeg(a, a, 0.5, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
}

func TestAddSeg_Success(t *testing.T) {
	g := New(testClearance)
	a, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	b, _ := g.AddFixedDot(geometry.Point2D{X: 10, Y: 0}, 1, 0, 1)

	segID, err := g.AddSeg(a, b, 0.5, 1)
	require.NoError(t, err)

	segs := g.DotSegs(a)
	require.Len(t, segs, 1)
	assert.Equal(t, segID, segs[0])
}

func TestAddBend_RequiresInnerToOwnExactlyOneSeg(t *testing.T) {
	g := New(testClearance)
	core, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, NoNet)
	inner, _ := g.AddLooseDot(geometry.Point2D{X: 5, Y: 0}, 0.5, 0, 1)
	outer, _ := g.AddLooseDot(geometry.Point2D{X: -5, Y: 0}, 0.5, 0, 1)

	// Neither inner nor outer owns a seg yet.
	_, err := g.AddBend(core, inner, outer, true, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
}

func TestAddBend_Success(t *testing.T) {
	g := New(testClearance)
	core, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 2, 0, NoNet)
	inner, _ := g.AddLooseDot(geometry.Point2D{X: 5, Y: 0}, 0.5, 0, 1)
	outer, _ := g.AddLooseDot(geometry.Point2D{X: -5, Y: 0}, 0.5, 0, 1)
	fixedA, _ := g.AddFixedDot(geometry.Point2D{X: 5, Y: 10}, 0.5, 0, 1)
	fixedB, _ := g.AddFixedDot(geometry.Point2D{X: -5, Y: 10}, 0.5, 0, 1)
	_, err := g.AddSeg(fixedA, inner, 0.5, 1)
	require.NoError(t, err)
	_, err = g.AddSeg(fixedB, outer, 0.5, 1)
	require.NoError(t, err)

	bendID, err := g.AddBend(core, inner, outer, true, 1)
	require.NoError(t, err)

	bows := g.Bow(core)
	require.Len(t, bows, 1)
	assert.Equal(t, bendID, bows[0])
}

func TestRemove_SegDetachesFromEndpointDots(t *testing.T) {
	g := New(testClearance)
	a, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	b, _ := g.AddFixedDot(geometry.Point2D{X: 10, Y: 0}, 1, 0, 1)
	segID, err := g.AddSeg(a, b, 0.5, 1)
	require.NoError(t, err)

	err = g.Remove(PrimitiveRefOfSeg(segID))
	require.NoError(t, err)

	_, ok := g.Seg(segID)
	assert.False(t, ok)
	assert.Empty(t, g.DotSegs(a))
}

func TestMoveLooseDot_RejectsFixedDot(t *testing.T) {
	g := New(testClearance)
	fixed, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)

	err := g.MoveLooseDot(fixed, geometry.Point2D{X: 1, Y: 1})
	require.Error(t, err)
}

func TestDotsOnLayer_FiltersByLayer(t *testing.T) {
	g := New(testClearance)
	g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 1, 1)

	layer0 := g.DotsOnLayer(0)
	layer1 := g.DotsOnLayer(1)
	assert.Len(t, layer0, 1)
	assert.Len(t, layer1, 1)
}

func TestBandsInterior_WalksSegsAndBends(t *testing.T) {
	g := New(testClearance)
	bands := NewBands()

	start, _ := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	end, _ := g.AddFixedDot(geometry.Point2D{X: 20, Y: 0}, 0.5, 0, 1)
	segID, err := g.AddSeg(start, end, 0.5, 1)
	require.NoError(t, err)

	bandID := bands.Register(1, 0.5, start)
	segs, bends, reachedEnd, ok := g.Interior(start)
	require.True(t, ok)
	assert.Equal(t, []SegID{segID}, segs)
	assert.Empty(t, bends)
	assert.Equal(t, end, reachedEnd)

	band, ok := bands.Get(bandID)
	require.True(t, ok)
	assert.Equal(t, start, band.From)
}
