package navmesh

import (
	"topola/internal/layout"
	"topola/pkg/geometry"
)

// Triangle is a Delaunay face, holding the indices of its three vertices
// into the Mesh's Vertices slice.
type Triangle struct {
	ID      int64
	A, B, C int
	NetID   layout.NetID // net of the dot nearest the centroid within clearance; layout.NoNet if none
	Blocked bool
}

// Centroid returns the triangle's centroid, used by the A* heuristic (C7).
func (t Triangle) Centroid(vertices []geometry.Point2D) geometry.Point2D {
	return geometry.Centroid([]geometry.Point2D{vertices[t.A], vertices[t.B], vertices[t.C]})
}

type edge struct{ a, b int }

func (e edge) normalize() edge {
	if e.a > e.b {
		return edge{e.b, e.a}
	}
	return e
}

// bowyerWatson computes an (unconstrained) Delaunay triangulation of
// points by incremental insertion, the classic algorithm: start from a
// bounding super-triangle, and for each point find and replace every
// triangle whose circumcircle contains it.
//
// The triangulation is not constrained: existing segs and bend chords are
// not forced into the edge set, and no constraint edges are inserted or
// checked here (see DESIGN.md). Blocking is done afterwards by
// Mesh.rebuild, which marks a triangle Blocked when its centroid lies
// within clearance of a dot (see classify); segs and bend arcs are not
// consulted, so a triangle crossed by another net's seg is not blocked.
func bowyerWatson(points []geometry.Point2D) []Triangle {
	n := len(points)
	if n < 3 {
		return nil
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	dx, dy := maxX-minX, maxY-minY
	span := max(dx, dy, 1)
	margin := span * 10

	pts := make([]geometry.Point2D, n, n+3)
	copy(pts, points)
	superA := geometry.Point2D{X: minX - margin, Y: minY - margin}
	superB := geometry.Point2D{X: maxX + margin*3, Y: minY - margin}
	superC := geometry.Point2D{X: minX - margin, Y: maxY + margin*3}
	pts = append(pts, superA, superB, superC)
	superIdx := [3]int{n, n + 1, n + 2}

	type tri struct{ a, b, c int }
	tris := []tri{{superIdx[0], superIdx[1], superIdx[2]}}

	for pi := 0; pi < n; pi++ {
		p := pts[pi]
		var bad []int
		for ti, t := range tris {
			if inCircumcircle(p, pts[t.a], pts[t.b], pts[t.c]) {
				bad = append(bad, ti)
			}
		}
		if len(bad) == 0 {
			continue
		}

		boundary := map[edge]int{}
		badSet := make(map[int]bool, len(bad))
		for _, ti := range bad {
			badSet[ti] = true
		}
		for _, ti := range bad {
			t := tris[ti]
			for _, e := range [3]edge{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
				boundary[e.normalize()]++
			}
		}

		kept := tris[:0:0]
		for ti, t := range tris {
			if !badSet[ti] {
				kept = append(kept, t)
			}
		}
		tris = kept

		for e, count := range boundary {
			if count != 1 {
				continue
			}
			tris = append(tris, tri{e.a, e.b, pi})
		}
	}

	out := make([]Triangle, 0, len(tris))
	var nextID int64
	for _, t := range tris {
		if t.a >= n || t.b >= n || t.c >= n {
			continue // drop triangles touching the super-triangle
		}
		out = append(out, Triangle{ID: nextID, A: t.a, B: t.b, C: t.c})
		nextID++
	}
	return out
}

func inCircumcircle(p, a, b, c geometry.Point2D) bool {
	// Standard determinant test for p inside the circumcircle of (a,b,c).
	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)

	// Orientation of (a,b,c) determines the sign convention for "inside".
	orient := (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
	if orient > 0 {
		return det > 0
	}
	return det < 0
}

func min(a, b float64, rest ...float64) float64 {
	m := a
	if b < m {
		m = b
	}
	for _, v := range rest {
		if v < m {
			m = v
		}
	}
	return m
}

func max(a, b float64, rest ...float64) float64 {
	m := a
	if b > m {
		m = b
	}
	for _, v := range rest {
		if v > m {
			m = v
		}
	}
	return m
}
