// Package overlay implements C12: read-only derived views over a layout
// graph — ratsnest, bounding boxes, length comparisons against ideal,
// navmesh wireframe — plus a PNG snapshot renderer. Grounded on
// original_source's primitive.rs/band.rs accessor style (derive, don't
// store) and on the teacher's colorutil net-color cycling, now reused for
// per-net coloring instead of PCB-image alignment overlays.
package overlay

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"topola/internal/layout"
	"topola/internal/navmesh"
	"topola/pkg/colorutil"
	"topola/pkg/geometry"
)

// RatsnestLine is one unrouted connection still owed between two fixed
// dots of the same net (spec.md §6's pre-route visualization).
type RatsnestLine struct {
	Net  layout.NetID
	From geometry.Point2D
	To   geometry.Point2D
}

// Ratsnest returns a straight line for every pair of fixed dots on the
// same net that the layout graph does not yet connect by a band,
// approximated by a minimum spanning tree over that net's fixed dots
// (spec.md glossary: "ratsnest", the classic MST-over-pins rendering).
func Ratsnest(g *layout.Graph, layer layout.LayerID, netsOfInterest map[layout.NetID]bool) []RatsnestLine {
	byNet := map[layout.NetID][]*layout.Dot{}
	for _, d := range g.DotsOnLayer(layer) {
		if !d.Fixed || d.Net == layout.NoNet {
			continue
		}
		if netsOfInterest != nil && !netsOfInterest[d.Net] {
			continue
		}
		byNet[d.Net] = append(byNet[d.Net], d)
	}

	var out []RatsnestLine
	for net, dots := range byNet {
		if len(dots) < 2 {
			continue
		}
		for _, mstEdge := range minimumSpanningTree(dots) {
			if connectedComponent(g, mstEdge.from.ID)[mstEdge.to.ID] {
				continue // already joined by a band
			}
			out = append(out, RatsnestLine{Net: net, From: mstEdge.from.Center, To: mstEdge.to.Center})
		}
	}
	return out
}

type mstEdge struct{ from, to *layout.Dot }

// minimumSpanningTree runs a simple O(n^2) Prim's algorithm, adequate for
// the pin counts a single net list carries (spec.md's Size Budget scopes
// boards, not general graphs).
func minimumSpanningTree(dots []*layout.Dot) []mstEdge {
	if len(dots) < 2 {
		return nil
	}
	inTree := make([]bool, len(dots))
	inTree[0] = true
	var edges []mstEdge
	for len(edges) < len(dots)-1 {
		best := -1
		bestTo := -1
		bestDist := math.Inf(1)
		for i, d := range dots {
			if !inTree[i] {
				continue
			}
			for j, other := range dots {
				if inTree[j] {
					continue
				}
				dist := d.Center.Distance(other.Center)
				if dist < bestDist {
					bestDist, best, bestTo = dist, i, j
				}
			}
		}
		if best < 0 {
			break
		}
		edges = append(edges, mstEdge{from: dots[best], to: dots[bestTo]})
		inTree[bestTo] = true
	}
	return edges
}

// connectedComponent returns the set of dot ids transitively reachable
// from start via segs/bends, used to skip ratsnest lines a band already
// satisfies. Ratsnest checks each spanning-tree edge on its own, so when a
// net is split into already-routed islands the tree may draw more than one
// line between the same two islands: it over-draws rather than hides
// unrouted work.
func connectedComponent(g *layout.Graph, start layout.DotID) map[layout.DotID]bool {
	visited := map[layout.DotID]bool{start: true}
	queue := []layout.DotID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, segID := range g.DotSegs(cur) {
			seg, ok := g.Seg(segID)
			if !ok {
				continue
			}
			other := seg.OtherEnd(cur)
			if !visited[other] {
				visited[other] = true
				queue = append(queue, other)
			}
		}
		if bendID, ok := g.DotBend(cur); ok {
			if bend, ok := g.Bend(bendID); ok {
				other := bend.OtherLooseEnd(cur)
				if !visited[other] {
					visited[other] = true
					queue = append(queue, other)
				}
			}
		}
	}
	return visited
}

// BoundingBox returns the smallest rectangle enclosing every dot on layer.
func BoundingBox(g *layout.Graph, layer layout.LayerID) geometry.Rect {
	var pts []geometry.Point2D
	for _, d := range g.DotsOnLayer(layer) {
		pts = append(pts, d.Center)
	}
	return geometry.BoundingBox(pts)
}

// ConvexOutline returns the convex hull of every fixed dot's center on
// layer, a coarser-but-cheaper board silhouette than BoundingBox for a
// debug overlay that wants to show the board's actual footprint rather
// than its axis-aligned bounds (spec.md §4.12/C12's "bounding boxes"
// inspection view, generalized to the hull the teacher's geometry package
// already computes).
func ConvexOutline(g *layout.Graph, layer layout.LayerID) []geometry.Point2D {
	var pts []geometry.Point2D
	for _, d := range g.DotsOnLayer(layer) {
		if d.Fixed {
			pts = append(pts, d.Center)
		}
	}
	return geometry.ConvexHull(pts)
}

// DetourRatio compares a band's drawn length to the straight-line ideal
// length between its two ends (spec.md §6's "detour comparison").
func DetourRatio(g *layout.Graph, from DotAndEnd) float64 {
	actual := g.Length(from.From)
	ideal := from.fromPoint.Distance(from.toPoint)
	if ideal < geometry.Epsilon {
		return 1
	}
	return actual / ideal
}

// DotAndEnd names a band by its starting dot plus the two endpoints'
// positions, needed for DetourRatio's ideal-length baseline.
type DotAndEnd struct {
	From      layout.DotID
	fromPoint geometry.Point2D
	toPoint   geometry.Point2D
}

// NewDotAndEnd looks up the two endpoints' current positions from the
// graph, for a band starting at from and ending at the fixed dot to.
func NewDotAndEnd(g *layout.Graph, from, to layout.DotID) (DotAndEnd, bool) {
	fd, ok1 := g.Dot(from)
	td, ok2 := g.Dot(to)
	if !ok1 || !ok2 {
		return DotAndEnd{}, false
	}
	return DotAndEnd{From: from, fromPoint: fd.Center, toPoint: td.Center}, true
}

// NavmeshWireframe returns one line segment per triangulation edge, for a
// debug/visualization overlay of the current navmesh (spec.md §9).
func NavmeshWireframe(g *layout.Graph, m *navmesh.Mesh) [][2]geometry.Point2D {
	var out [][2]geometry.Point2D
	for _, t := range m.Triangles(g) {
		a, b, c := m.Vertex(t.A), m.Vertex(t.B), m.Vertex(t.C)
		out = append(out, [2]geometry.Point2D{a, b}, [2]geometry.Point2D{b, c}, [2]geometry.Point2D{c, a})
	}
	return out
}

// NetSnapshot is one net's session output (spec.md §6's "read-only
// snapshot iterator yielding, per net, an ordered polyline of (point,
// layer) pairs plus via placements"): one Polyline per band currently
// routed on that net, plus the net's fixed via/pad terminals.
type NetSnapshot struct {
	Net       layout.NetID
	Polylines []Polyline
	Terminals []geometry.Point2D
}

// Polyline is one band's drawn path, walked from its starting fixed dot to
// its end, bends sampled into straight segments so a consumer that only
// understands points-plus-layer (an SES writer, a plotting front-end)
// never needs arc math.
type Polyline struct {
	Layer  layout.LayerID
	Points []geometry.Point2D
}

// Snapshot walks every registered band and groups its polyline by net,
// the adapter C12 exposes to a CLI driver or SES emitter in lieu of storing
// session output redundantly (spec.md §6; original_source's session.rs
// derives the same view by walking bands on demand rather than caching it).
func Snapshot(g *layout.Graph, bands *layout.Bands) []NetSnapshot {
	byNet := map[layout.NetID]*NetSnapshot{}
	order := []layout.NetID{}
	ensure := func(net layout.NetID) *NetSnapshot {
		if s, ok := byNet[net]; ok {
			return s
		}
		s := &NetSnapshot{Net: net}
		byNet[net] = s
		order = append(order, net)
		return s
	}

	for _, id := range bands.All() {
		b, ok := bands.Get(id)
		if !ok {
			continue
		}
		points, layer, ok := walkPolyline(g, b.From)
		if !ok {
			continue
		}
		snap := ensure(b.Net)
		snap.Polylines = append(snap.Polylines, Polyline{Layer: layer, Points: points})
	}
	for net, dots := range terminalsByNet(g) {
		snap := ensure(net)
		snap.Terminals = dots
	}

	out := make([]NetSnapshot, 0, len(order))
	for _, net := range order {
		out = append(out, *byNet[net])
	}
	return out
}

func terminalsByNet(g *layout.Graph) map[layout.NetID][]geometry.Point2D {
	out := map[layout.NetID][]geometry.Point2D{}
	for _, layerDots := range allLayers(g) {
		for _, d := range g.DotsOnLayer(layerDots) {
			if d.Fixed && d.Net != layout.NoNet {
				out[d.Net] = append(out[d.Net], d.Center)
			}
		}
	}
	return out
}

// allLayers has no layer registry to enumerate on the graph itself, so it
// scans the 0..63 range a board realistically spans (spec.md's Size Budget
// bounds layer count well under this) rather than requiring every caller
// to thread a layer list through Snapshot.
func allLayers(g *layout.Graph) []layout.LayerID {
	var out []layout.LayerID
	for i := layout.LayerID(0); i < 64; i++ {
		if len(g.DotsOnLayer(i)) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// walkPolyline walks a band's interior, reusing the same dotSegs/dotBend
// adjacency g.Interior traverses, but collecting positions rather than
// primitive ids, sampling each bend's arc so the result is plain points.
func walkPolyline(g *layout.Graph, from layout.DotID) ([]geometry.Point2D, layout.LayerID, bool) {
	start, ok := g.Dot(from)
	if !ok {
		return nil, 0, false
	}
	points := []geometry.Point2D{start.Center}
	layer := start.Layer

	cur := from
	var prevSeg layout.SegID
	havePrevSeg := false
	for {
		segIDs := g.DotSegs(cur)
		var next layout.SegID
		found := false
		for _, s := range segIDs {
			if havePrevSeg && s == prevSeg {
				continue
			}
			next, found = s, true
			break
		}
		if !found {
			return points, layer, true
		}
		seg, ok := g.Seg(next)
		if !ok {
			return nil, 0, false
		}
		other := seg.OtherEnd(cur)
		otherDot, ok := g.Dot(other)
		if !ok {
			return nil, 0, false
		}
		points = append(points, otherDot.Center)
		prevSeg, havePrevSeg = next, true
		cur = other

		if otherDot.Fixed {
			return points, layer, true
		}
		bendID, hasBend := g.DotBend(cur)
		if !hasBend {
			return points, layer, true
		}
		bend, ok := g.Bend(bendID)
		if !ok {
			return nil, 0, false
		}
		core, ok := g.Dot(bend.Core)
		if !ok {
			return nil, 0, false
		}
		radius := core.Center.Distance(otherDot.Center)
		next2 := bend.OtherLooseEnd(cur)
		outerDot, ok := g.Dot(next2)
		if !ok {
			return nil, 0, false
		}
		arc := geometry.NewArc(core.Center, radius, otherDot.Center, outerDot.Center, bend.CW)
		const samples = 8
		angle := arc.Angle()
		step := angle / samples
		if bend.CW {
			step = -step
		}
		startVec := otherDot.Center.Sub(core.Center)
		startAngle := math.Atan2(startVec.Y, startVec.X)
		for i := 1; i <= samples; i++ {
			theta := startAngle + step*float64(i)
			points = append(points, geometry.Point2D{
				X: core.Center.X + radius*math.Cos(theta),
				Y: core.Center.Y + radius*math.Sin(theta),
			})
		}
		cur = next2
	}
}

// RenderOptions controls RenderPNG's output.
type RenderOptions struct {
	Width, Height    int
	Scale            float64 // board units per pixel
	OriginX, OriginY float64
}

// RenderPNG rasterizes every dot, seg, and bend of layer to w as a PNG
// snapshot, coloring primitives by net via pkg/colorutil.NetColor.
// Grounded on golang.org/x/image/vector's rasterizer, the same
// scanline-AA approach the teacher's own canvas/overlay.go used for its
// alignment-overlay rendering, now drawing copper primitives instead of
// image-alignment markers.
func RenderPNG(w io.Writer, g *layout.Graph, layer layout.LayerID, opts RenderOptions) error {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	fillBackground(img, color.RGBA{R: 20, G: 20, B: 24, A: 255})

	toPixel := func(p geometry.Point2D) (float32, float32) {
		x := (p.X - opts.OriginX) / opts.Scale
		y := (p.Y - opts.OriginY) / opts.Scale
		return float32(x), float32(y)
	}

	for _, s := range g.SegsOnLayer(layer) {
		from, ok1 := g.Dot(s.From)
		to, ok2 := g.Dot(s.To)
		if !ok1 || !ok2 {
			continue
		}
		drawThickLine(img, toPixel, from.Center, to.Center, s.Width/opts.Scale, colorutil.NetColor(int(s.Net)))
	}
	for _, b := range g.BendsOnLayer(layer) {
		drawBendArc(img, g, toPixel, b)
	}
	for _, d := range g.DotsOnLayer(layer) {
		drawDisk(img, toPixel, d.Center, d.Radius/opts.Scale, colorutil.NetColor(int(d.Net)))
	}

	return png.Encode(w, img)
}

func fillBackground(img *image.RGBA, c color.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawThickLine rasterizes a capsule (segment inflated by width/2) using a
// vector.Rasterizer outline, the vector package's intended usage pattern.
func drawThickLine(img *image.RGBA, toPixel func(geometry.Point2D) (float32, float32), from, to geometry.Point2D, halfWidthUnits float64, c color.RGBA) {
	bounds := img.Bounds()
	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())

	fx, fy := toPixel(from)
	tx, ty := toPixel(to)
	dx, dy := tx-fx, ty-fy
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length < 1e-6 {
		return
	}
	nx, ny := -dy/length*float32(halfWidthUnits), dx/length*float32(halfWidthUnits)

	r.MoveTo(fx+nx, fy+ny)
	r.LineTo(tx+nx, ty+ny)
	r.LineTo(tx-nx, ty-ny)
	r.LineTo(fx-nx, fy-ny)
	r.ClosePath()
	composite(img, r, c)
}

func drawDisk(img *image.RGBA, toPixel func(geometry.Point2D) (float32, float32), center geometry.Point2D, radiusUnits float64, c color.RGBA) {
	bounds := img.Bounds()
	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())

	cx, cy := toPixel(center)
	const segments = 16
	for i, p := range geometry.GenerateCirclePoints(0, 0, radiusUnits, segments) {
		x, y := cx+float32(p.X), cy+float32(p.Y)
		if i == 0 {
			r.MoveTo(x, y)
		} else {
			r.LineTo(x, y)
		}
	}
	r.ClosePath()
	composite(img, r, c)
}

func drawBendArc(img *image.RGBA, g *layout.Graph, toPixel func(geometry.Point2D) (float32, float32), b *layout.Bend) {
	core, ok1 := g.Dot(b.Core)
	inner, ok2 := g.Dot(b.Inner)
	outer, ok3 := g.Dot(b.Outer)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	radius := core.Center.Distance(inner.Center)
	arc := geometry.NewArc(core.Center, radius, inner.Center, outer.Center, b.CW)

	bounds := img.Bounds()
	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	const segments = 12
	angle := arc.Angle()
	startVec := inner.Center.Sub(core.Center)
	startAngle := math.Atan2(startVec.Y, startVec.X)
	step := angle / segments
	if b.CW {
		step = -step
	}
	for i := 0; i <= segments; i++ {
		theta := startAngle + step*float64(i)
		p := geometry.Point2D{X: core.Center.X + radius*math.Cos(theta), Y: core.Center.Y + radius*math.Sin(theta)}
		x, y := toPixel(p)
		if i == 0 {
			r.MoveTo(x, y)
		} else {
			r.LineTo(x, y)
		}
	}
	cx, cy := toPixel(core.Center)
	r.LineTo(cx, cy)
	r.ClosePath()
	composite(img, r, colorutil.NetColor(int(b.Net)))
}

// composite rasterizes r's accumulated path and alpha-blends color c over
// img wherever the path covers, the vector package's own Draw-onto-a-
// draw.Image usage pattern (its rasterizer accumulates a coverage mask
// internally and composites src through it on Draw).
func composite(img *image.RGBA, r *vector.Rasterizer, c color.RGBA) {
	r.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
}
