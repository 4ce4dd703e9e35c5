package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/autorouter"
	"topola/internal/layout"
	"topola/internal/navmesh"
	"topola/internal/routererr"
	"topola/pkg/geometry"
)

func testClearance(layout.LayerID) float64 { return 0.5 }

func newTestInvoker() (*Invoker, *layout.Graph) {
	g := layout.New(testClearance)
	bands := layout.NewBands()
	meshes := map[layout.LayerID]*navmesh.Mesh{0: navmesh.New(0, nil)}
	return New(g, bands, meshes, nil, nil), g
}

func TestExecute_PlaceViaAddsFixedDot(t *testing.T) {
	inv, g := newTestInvoker()

	_, err := inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{1, 2}, Radius: 0.5, Net: 1}})
	require.NoError(t, err)
	assert.Len(t, g.DotsOnLayer(0), 1)
}

func TestUndo_PlaceViaRemovesTheDot(t *testing.T) {
	inv, g := newTestInvoker()

	_, err := inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{1, 2}, Radius: 0.5, Net: 1}})
	require.NoError(t, err)

	require.NoError(t, inv.Undo())
	assert.Empty(t, g.DotsOnLayer(0))
}

func TestRedo_PlaceViaReappliesTheCommand(t *testing.T) {
	inv, g := newTestInvoker()

	_, err := inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{1, 2}, Radius: 0.5, Net: 1}})
	require.NoError(t, err)
	before := g.DotsOnLayer(0)
	require.Len(t, before, 1)
	originalID := before[0].ID

	require.NoError(t, inv.Undo())
	assert.Empty(t, g.DotsOnLayer(0))

	require.NoError(t, inv.Redo())

	after := g.DotsOnLayer(0)
	require.Len(t, after, 1)
	assert.Equal(t, originalID, after[0].ID, "redo must restore the original dot id, not allocate a fresh one")
}

func TestRedo_AutorouteRestoresOriginalPrimitiveIDs(t *testing.T) {
	inv, g := newTestInvoker()

	from, err := g.AddFixedDot(geometry.Point2D{X: 0, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	to, err := g.AddFixedDot(geometry.Point2D{X: 2, Y: 0}, 0.5, 0, 1)
	require.NoError(t, err)
	// A third dot so the layer's navmesh has a triangle to route through.
	_, err = g.AddFixedDot(geometry.Point2D{X: 1, Y: 5}, 0.5, 0, 1)
	require.NoError(t, err)

	report, err := inv.Execute(Command{Autoroute: &Autoroute{
		Ratlines: []autorouter.Ratline{{Net: 1, Layer: 0, From: from, To: to}},
		Options:  autorouter.RouterOptions{Width: 0.1},
	}})
	require.NoError(t, err)
	require.Len(t, report.Done, 1)

	segsBefore := g.DotSegs(from)
	require.NotEmpty(t, segsBefore)

	require.NoError(t, inv.Undo())
	assert.Empty(t, g.DotSegs(from))

	require.NoError(t, inv.Redo())

	segsAfter := g.DotSegs(from)
	assert.ElementsMatch(t, segsBefore, segsAfter, "redo must restore the original seg ids, not allocate fresh ones")
}

func TestRedo_PreservesLaterRedoableEntriesAfterMultipleUndos(t *testing.T) {
	inv, g := newTestInvoker()

	_, err := inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{1, 2}, Radius: 0.5, Net: 1}})
	require.NoError(t, err)
	_, err = inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{5, 5}, Radius: 0.5, Net: 2}})
	require.NoError(t, err)

	require.NoError(t, inv.Undo())
	require.NoError(t, inv.Undo())
	assert.Empty(t, g.DotsOnLayer(0))

	require.NoError(t, inv.Redo())
	assert.Len(t, g.DotsOnLayer(0), 1)

	// Unlike re-invoking Execute, Redo must not have truncated the
	// still-undone second entry: it should still be redoable.
	require.NoError(t, inv.Redo())
	assert.Len(t, g.DotsOnLayer(0), 2)
}

func TestUndo_NothingToUndoErrors(t *testing.T) {
	inv, _ := newTestInvoker()
	err := inv.Undo()
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
}

func TestRedo_NothingToRedoErrors(t *testing.T) {
	inv, _ := newTestInvoker()
	err := inv.Redo()
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
}

func TestExecute_TruncatesRedoTailOnNewCommand(t *testing.T) {
	inv, g := newTestInvoker()

	_, err := inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{1, 2}, Radius: 0.5, Net: 1}})
	require.NoError(t, err)
	require.NoError(t, inv.Undo())

	_, err = inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{5, 5}, Radius: 0.5, Net: 2}})
	require.NoError(t, err)

	err = inv.Redo()
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
	assert.Len(t, g.DotsOnLayer(0), 1)
}

func TestExecute_EmptyCommandErrors(t *testing.T) {
	inv, _ := newTestInvoker()
	_, err := inv.Execute(Command{})
	require.Error(t, err)
	assert.ErrorIs(t, err, routererr.ErrInvariantViolation)
}

func TestEncode_ReportsDoneAndUndoneCounts(t *testing.T) {
	inv, _ := newTestInvoker()
	_, err := inv.Execute(Command{PlaceVia: &PlaceVia{Layer: 0, Center: [2]float64{1, 2}, Radius: 0.5, Net: 1}})
	require.NoError(t, err)
	require.NoError(t, inv.Undo())

	data, err := inv.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"done":[]`)
	assert.NotContains(t, string(data), `"undone":[]`)
}
