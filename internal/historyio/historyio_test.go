package historyio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topola/internal/board"
	"topola/internal/layout"
)

func testClearance(layout.LayerID) float64 { return 0.25 }

func newTestResolver(t *testing.T) Resolver {
	t.Helper()
	desc := &board.Description{
		Layers: []board.Layer{{ID: 0, Name: "F.Cu"}},
		Pads: []board.Pad{
			{Component: "R1", Number: "1", Layer: 0, X: 0, Y: 0, Radius: 0.5},
			{Component: "R1", Number: "2", Layer: 0, X: 10, Y: 0, Radius: 0.5},
		},
		Nets: []board.Net{{Name: "NET1", Pins: []string{"R1-1", "R1-2"}}},
	}
	seeded, err := board.Seed(desc, testClearance)
	require.NoError(t, err)
	return Resolver{Seeded: seeded, Graph: seeded.Graph, ViaRadius: 0.4, DefaultWidth: 0.2}
}

func TestDecode_AcceptsBareSqueezeBool(t *testing.T) {
	r := newTestResolver(t)
	data := []byte(`{
		"done": [
			{"Autoroute": [
				{"selectors": [{"pin": "R1-1", "layer": 0}, {"pin": "R1-2", "layer": 0}]},
				{"presort_by_pairwise_detours": true, "router_options": {"wrap_around_bands": true, "squeeze_under_bands": true}}
			]}
		],
		"undone": []
	}`)

	done, undone, err := Decode(data, r)
	require.NoError(t, err)
	require.Empty(t, undone)
	require.Len(t, done, 1)

	cmd := done[0]
	require.NotNil(t, cmd.Autoroute)
	assert.Len(t, cmd.Autoroute.Ratlines, 1)
	assert.True(t, cmd.Autoroute.Options.Shove.SqueezeUnderBands)
	assert.True(t, cmd.Autoroute.Options.PresortByDetour)
}

func TestDecode_AcceptsSqueezeThroughUnderAlias(t *testing.T) {
	r := newTestResolver(t)
	data := []byte(`{
		"done": [
			{"Autoroute": [
				{"selectors": [{"pin": "R1-1", "layer": 0}, {"pin": "R1-2", "layer": 0}]},
				{"router_options": {"squeeze_through_under_bands": true}}
			]}
		],
		"undone": []
	}`)

	done, _, err := Decode(data, r)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.True(t, done[0].Autoroute.Options.Shove.SqueezeUnderBands)
}

func TestDecode_OddSelectorCountErrors(t *testing.T) {
	r := newTestResolver(t)
	data := []byte(`{
		"done": [
			{"Autoroute": [
				{"selectors": [{"pin": "R1-1", "layer": 0}]},
				{"router_options": {}}
			]}
		],
		"undone": []
	}`)

	_, _, err := Decode(data, r)
	require.Error(t, err)
}

func TestDecode_UnknownPinErrors(t *testing.T) {
	r := newTestResolver(t)
	data := []byte(`{
		"done": [
			{"Autoroute": [
				{"selectors": [{"pin": "R1-1", "layer": 0}, {"pin": "NOPE-1", "layer": 0}]},
				{"router_options": {}}
			]}
		],
		"undone": []
	}`)

	_, _, err := Decode(data, r)
	require.Error(t, err)
}

func TestDecode_PlaceViaExpandsOnePerLayer(t *testing.T) {
	r := newTestResolver(t)
	data := []byte(`{
		"done": [
			{"PlaceVia": {"at": [1, 2], "layers": [0]}}
		],
		"undone": []
	}`)

	done, _, err := Decode(data, r)
	require.NoError(t, err)
	require.Len(t, done, 1)
	require.NotNil(t, done[0].PlaceVia)
	assert.Equal(t, 0.4, done[0].PlaceVia.Radius)
}

func TestSortedBandIDs_SortsAscending(t *testing.T) {
	ids := []layout.BandID{5, 1, 3}
	sorted := SortedBandIDs(ids)
	assert.Equal(t, []layout.BandID{1, 3, 5}, sorted)
	assert.Equal(t, []layout.BandID{5, 1, 3}, ids)
}

func TestEncode_RoundTripsCommandKinds(t *testing.T) {
	r := newTestResolver(t)
	data := []byte(`{"done": [{"RemoveBands": {"bands": [1, 2]}}], "undone": []}`)
	done, _, err := Decode(data, r)
	require.NoError(t, err)

	out, err := Encode(done, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"RemoveBands"`)
}
