package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvexHull_SquareWithInteriorPointDropsInterior(t *testing.T) {
	pts := []Point2D{
		{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}, {X: 2, Y: 2},
	}
	hull := ConvexHull(pts)
	assert.Len(t, hull, 4)
	for _, p := range hull {
		assert.NotEqual(t, Point2D{X: 2, Y: 2}, p)
	}
}

func TestConvexHull_FewerThanThreePointsReturnedUnchanged(t *testing.T) {
	pts := []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}
	assert.Equal(t, pts, ConvexHull(pts))
}

func TestPointInPolygon_InsideSquareIsTrue(t *testing.T) {
	square := []Point2D{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	assert.True(t, PointInPolygon(Point2D{X: 2, Y: 2}, square))
}

func TestPointInPolygon_OutsideSquareIsFalse(t *testing.T) {
	square := []Point2D{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	assert.False(t, PointInPolygon(Point2D{X: 10, Y: 10}, square))
}

func TestPointInPolygon_DegeneratePolygonIsFalse(t *testing.T) {
	assert.False(t, PointInPolygon(Point2D{X: 0, Y: 0}, []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}))
}
