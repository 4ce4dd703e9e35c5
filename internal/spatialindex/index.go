// Package spatialindex wraps github.com/tidwall/rtree, a generic
// bounding-box R-tree, behind the insert/remove/update/query/nearest_k
// interface spec.md §4.2 describes. No R-tree ships in the retrieved
// example corpus, so this is the one spot where a dependency is adopted
// from the wider ecosystem rather than grounded on a pack file (see
// DESIGN.md).
package spatialindex

import (
	"fmt"

	"github.com/tidwall/rtree"

	"topola/internal/routererr"
	"topola/pkg/geometry"
)

// ID identifies a primitive in the layout graph; spatialindex treats it as
// opaque data attached to each R-tree entry.
type ID uint64

// Index is an R-tree keyed by primitive id, storing the AABB of each
// primitive's inflated shape. It is maintained incrementally on every
// layout mutation (spec.md §3, "Spatial index").
//
// Lookup of an unknown id is a hard error: it indicates C3 corruption, and
// per spec.md §4.2 callers never recover from it.
type Index struct {
	tree   rtree.RTreeG[ID]
	bounds map[ID]geometry.Rect
}

// New creates an empty spatial index.
func New() *Index {
	return &Index{bounds: make(map[ID]geometry.Rect)}
}

func rectToMinMax(r geometry.Rect) (min, max [2]float64) {
	return [2]float64{r.X, r.Y}, [2]float64{r.X + r.Width, r.Y + r.Height}
}

// Insert adds a primitive's inflated AABB to the index.
func (idx *Index) Insert(id ID, box geometry.Rect) {
	min, max := rectToMinMax(box)
	idx.tree.Insert(min, max, id)
	idx.bounds[id] = box
}

// Remove deletes a primitive from the index.
func (idx *Index) Remove(id ID) error {
	box, ok := idx.bounds[id]
	if !ok {
		return fmt.Errorf("spatialindex: remove %d: %w", id, routererr.ErrUnknownID)
	}
	min, max := rectToMinMax(box)
	idx.tree.Delete(min, max, id)
	delete(idx.bounds, id)
	return nil
}

// Update replaces a primitive's AABB, e.g. after move_loose_dot (spec.md
// §4.3). Implemented as remove-then-insert, as spec.md §9's design notes
// require ("treat move_loose_dot as remove+insert").
func (idx *Index) Update(id ID, box geometry.Rect) error {
	if err := idx.Remove(id); err != nil {
		return err
	}
	idx.Insert(id, box)
	return nil
}

// Query returns the ids of every primitive whose AABB intersects box.
func (idx *Index) Query(box geometry.Rect) []ID {
	min, max := rectToMinMax(box)
	var found []ID
	idx.tree.Search(min, max, func(_, _ [2]float64, data ID) bool {
		found = append(found, data)
		return true
	})
	return found
}

// NearestK returns up to k ids closest to point, nearest first.
func (idx *Index) NearestK(point geometry.Point2D, k int) []ID {
	if k <= 0 {
		return nil
	}
	found := make([]ID, 0, k)
	idx.tree.Nearby(
		rtree.BoxDist[float64, ID]([2]float64{point.X, point.Y}, [2]float64{point.X, point.Y}, nil),
		func(_, _ [2]float64, data ID, _ float64) bool {
			found = append(found, data)
			return len(found) < k
		},
	)
	return found
}

// Len returns the number of indexed primitives.
func (idx *Index) Len() int {
	return len(idx.bounds)
}

// Bounds returns the last AABB recorded for id, and whether it exists.
func (idx *Index) Bounds(id ID) (geometry.Rect, bool) {
	b, ok := idx.bounds[id]
	return b, ok
}
