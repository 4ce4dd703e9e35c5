package drawing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/layout"
	"topola/pkg/geometry"
)

func testClearance(layout.LayerID) float64 { return 0.5 }

func TestStartFrom_RejectsLooseDot(t *testing.T) {
	g := layout.New(testClearance)
	bands := layout.NewBands()
	loose, err := g.AddLooseDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)

	_, err = StartFrom(g, bands, loose, 0.5)
	require.Error(t, err)
}

func TestStartFrom_Success(t *testing.T) {
	g := layout.New(testClearance)
	bands := layout.NewBands()
	fixed, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)

	head, err := StartFrom(g, bands, fixed, 0.5)
	require.NoError(t, err)
	assert.Equal(t, fixed, head.Dot())

	_, ok := bands.Get(head.Band())
	assert.True(t, ok)
}

func TestExtendToBend_WrapsCoreAndAdvancesHead(t *testing.T) {
	g := layout.New(testClearance)
	bands := layout.NewBands()

	start, err := g.AddFixedDot(geometry.Point2D{X: -20, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	core, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 2, 0, layout.NoNet)
	require.NoError(t, err)

	head, err := StartFrom(g, bands, start, 0.5)
	require.NoError(t, err)

	err = head.ExtendToBend(core, true, geometry.Point2D{X: 20, Y: 0})
	require.NoError(t, err)

	assert.NotEqual(t, start, head.Dot())
	bow := g.Bow(core)
	assert.Len(t, bow, 1)
}

func TestExtendToBend_UndoLastRestoresPriorDot(t *testing.T) {
	g := layout.New(testClearance)
	bands := layout.NewBands()

	start, err := g.AddFixedDot(geometry.Point2D{X: -20, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	core, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 2, 0, layout.NoNet)
	require.NoError(t, err)

	head, err := StartFrom(g, bands, start, 0.5)
	require.NoError(t, err)
	require.NoError(t, head.ExtendToBend(core, true, geometry.Point2D{X: 20, Y: 0}))

	require.NoError(t, head.UndoLast())
	assert.Equal(t, start, head.Dot())
	assert.Empty(t, g.Bow(core))
}

func TestUndoLast_NothingToUndoErrors(t *testing.T) {
	g := layout.New(testClearance)
	bands := layout.NewBands()
	start, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)

	head, err := StartFrom(g, bands, start, 0.5)
	require.NoError(t, err)

	err = head.UndoLast()
	require.Error(t, err)
}

func TestFinishAt_RejectsLooseTarget(t *testing.T) {
	g := layout.New(testClearance)
	bands := layout.NewBands()
	start, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	loose, err := g.AddLooseDot(geometry.Point2D{X: 10, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)

	head, err := StartFrom(g, bands, start, 0.5)
	require.NoError(t, err)

	err = head.FinishAt(loose)
	require.Error(t, err)
}

func TestFinishAt_Success(t *testing.T) {
	g := layout.New(testClearance)
	bands := layout.NewBands()
	start, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 1, 0, 1)
	require.NoError(t, err)
	end, err := g.AddFixedDot(geometry.Point2D{X: 20, Y: 0}, 1, 0, 1)
	require.NoError(t, err)

	head, err := StartFrom(g, bands, start, 0.5)
	require.NoError(t, err)

	err = head.FinishAt(end)
	require.NoError(t, err)

	segs := g.DotSegs(start)
	assert.Len(t, segs, 1)
}
