package geometry

import (
	"errors"
	"math"

	"github.com/jbeda/geom"
)

// Epsilon is the default numeric tolerance for coincidence tests in the
// geometry kernel. Differences below Epsilon are treated as equal.
const Epsilon = 1e-9

// ErrNoTangent is returned when two circles overlap too much (or one
// contains the other) for an outer tangent line to exist.
var ErrNoTangent = errors.New("geometry: no tangent between circles")

// Circle is a core primitive of the geometry kernel: a center and a radius,
// used for dot pads, bend cores, and the inflated shapes fed to the spatial
// index.
type Circle struct {
	Center Point2D
	Radius float64
}

// NewCircle builds a Circle.
func NewCircle(center Point2D, radius float64) Circle {
	return Circle{Center: center, Radius: radius}
}

func toCoord(p Point2D) geom.Coord {
	return geom.Coord{X: p.X, Y: p.Y}
}

func fromCoord(c geom.Coord) Point2D {
	return Point2D{X: c.X, Y: c.Y}
}

// TangentPoints returns the two points of the single outer tangent line
// between circle A and circle B whose winding (as seen from A's center
// looking toward B's) matches cw. The line runs from the point on A to the
// point on B without crossing the segment joining the two centers.
//
// ErrNoTangent is returned when the circles are closer together than the
// difference of their radii (no outer tangent exists).
func TangentPoints(a, b Circle, cw bool) (Point2D, Point2D, error) {
	ca, cb := toCoord(a.Center), toCoord(b.Center)
	delta := cb.Minus(ca)
	d := delta.Magnitude()
	if d < Epsilon {
		return Point2D{}, Point2D{}, ErrNoTangent
	}

	// For an outer tangent, the radius line from each center to its tangent
	// point makes the same angle theta with the center-to-center line,
	// where sin(theta) = (rb - ra) / d.
	sinTheta := (b.Radius - a.Radius) / d
	if sinTheta > 1 || sinTheta < -1 {
		return Point2D{}, Point2D{}, ErrNoTangent
	}
	cosTheta := math.Sqrt(math.Max(0, 1-sinTheta*sinTheta))

	unit := delta.Times(1 / d)
	normal := geom.Coord{X: -unit.Y, Y: unit.X}
	if !cw {
		normal = geom.Coord{X: unit.Y, Y: -unit.X}
	}

	dir := unit.Times(sinTheta).Plus(normal.Times(cosTheta))
	pa := ca.Plus(dir.Times(a.Radius))
	pb := cb.Plus(dir.Times(b.Radius))

	return fromCoord(pa), fromCoord(pb), nil
}

// Arc is a circular arc around a core, from Start to End, carrying its
// winding direction.
type Arc struct {
	Core  Circle
	Start Point2D
	End   Point2D
	CW    bool
}

// NewArc builds an Arc, inferring its radius from Start's distance to Core's
// center (the caller is responsible for Start and End lying on the same
// circle).
func NewArc(core Point2D, radius float64, start, end Point2D, cw bool) Arc {
	return Arc{Core: Circle{Center: core, Radius: radius}, Start: start, End: end, CW: cw}
}

// Angle returns the included angle of the arc, in (0, 2*pi], measured in the
// arc's winding direction.
func (a Arc) Angle() float64 {
	angle := math.Abs(geom.VertexAngle(toCoord(a.Start), toCoord(a.Core.Center), toCoord(a.End)))
	if angle == 0 {
		return 2 * math.Pi
	}
	return angle
}

// Length returns the arc's length.
func (a Arc) Length() float64 {
	return a.Core.Radius * a.Angle()
}

// Midpoint returns the point on the arc halfway (by angle) between Start and
// End, used as a Steiner point when triangulating around bends (C6).
func (a Arc) Midpoint() Point2D {
	start := toCoord(a.Start).Minus(toCoord(a.Core.Center))
	half := a.Angle() / 2
	if a.CW {
		half = -half
	}
	sin, cos := math.Sin(half), math.Cos(half)
	rotated := geom.Coord{
		X: start.X*cos - start.Y*sin,
		Y: start.X*sin + start.Y*cos,
	}
	return fromCoord(toCoord(a.Core.Center).Plus(rotated))
}

// MinDistance returns the minimum distance between the circumferences of two
// circles. It is negative when the circles overlap (by that amount) and
// zero when they are exactly tangent.
func MinDistance(a, b Circle) float64 {
	d := toCoord(b.Center).Minus(toCoord(a.Center)).Magnitude()
	return d - a.Radius - b.Radius
}

// Intersects reports whether two circles' disks overlap. Exact tangency
// is not treated as an intersection.
func Intersects(a, b Circle) bool {
	return MinDistance(a, b) < -Epsilon
}

// Inflate returns the axis-aligned bounding rectangle of a circle dilated by
// eps, as consumed by the spatial index (C2) for clearance-aware queries.
func Inflate(c Circle, eps float64) Rect {
	r := c.Radius + eps
	return Rect{
		X:      c.Center.X - r,
		Y:      c.Center.Y - r,
		Width:  2 * r,
		Height: 2 * r,
	}
}

// SegmentMinDistance returns the minimum distance from a point to the
// segment [p1,p2].
func SegmentMinDistance(p, p1, p2 Point2D) float64 {
	cp, c1, c2 := toCoord(p), toCoord(p1), toCoord(p2)
	d := c2.Minus(c1)
	length2 := geom.DotProduct(d, d)
	if length2 < Epsilon*Epsilon {
		return cp.Minus(c1).Magnitude()
	}
	t := geom.DotProduct(cp.Minus(c1), d) / length2
	t = math.Max(0, math.Min(1, t))
	proj := c1.Plus(d.Times(t))
	return cp.Minus(proj).Magnitude()
}

// SegmentsIntersect reports whether segments [a1,a2] and [b1,b2] cross.
// Shared endpoints are not treated as a crossing (bands are allowed to touch
// at a shared dot).
func SegmentsIntersect(a1, a2, b1, b2 Point2D) bool {
	d1 := sign(cross(a1, a2, b1))
	d2 := sign(cross(a1, a2, b2))
	d3 := sign(cross(b1, b2, a1))
	d4 := sign(cross(b1, b2, a2))
	return d1*d2 < 0 && d3*d4 < 0
}

// SegmentSegmentDistance returns the minimum distance between segments
// [a1,a2] and [b1,b2]. It is zero (or near it) when they cross.
func SegmentSegmentDistance(a1, a2, b1, b2 Point2D) float64 {
	if SegmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	d := SegmentMinDistance(a1, b1, b2)
	if v := SegmentMinDistance(a2, b1, b2); v < d {
		d = v
	}
	if v := SegmentMinDistance(b1, a1, a2); v < d {
		d = v
	}
	if v := SegmentMinDistance(b2, a1, a2); v < d {
		d = v
	}
	return d
}

// CircleSegmentDistance returns the minimum distance between a circle's
// circumference-adjacent disk boundary and a segment — i.e. the distance
// from the segment to the circle's center, minus its radius. Negative
// values mean the segment passes inside the disk.
func CircleSegmentDistance(c Circle, p1, p2 Point2D) float64 {
	return SegmentMinDistance(c.Center, p1, p2) - c.Radius
}

func cross(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func sign(v float64) int {
	switch {
	case v > Epsilon:
		return 1
	case v < -Epsilon:
		return -1
	default:
		return 0
	}
}
