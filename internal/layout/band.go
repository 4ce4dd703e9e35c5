package layout

import "topola/pkg/geometry"

// BandID is a first-class handle for one band, distinct from informally
// traversing seg adjacencies (SPEC_FULL.md §3, grounded on original_source
// band.rs's BandIndex/BandWeight). RemoveBands (spec.md §6) operates on
// these ids.
type BandID uint64

// Band records a band's net, width, and starting fixed dot; its end and
// interior are derived by walking seg/bend adjacency from From, exactly as
// original_source's Band::to()/length() do, rather than stored redundantly.
type Band struct {
	ID    BandID
	Net   NetID
	Width float64
	From  DotID
}

// Bands is the graph's band registry, separate from the dot/seg/bend arenas
// since a band is a derived, named path rather than a primitive with its
// own geometry.
type Bands struct {
	byID   map[BandID]*Band
	nextID uint64
}

// NewBands creates an empty band registry.
func NewBands() *Bands {
	return &Bands{byID: make(map[BandID]*Band)}
}

// Register creates a new Band handle for a just-started drawing head.
func (bs *Bands) Register(net NetID, width float64, from DotID) BandID {
	bs.nextID++
	id := BandID(bs.nextID)
	bs.byID[id] = &Band{ID: id, Net: net, Width: width, From: from}
	return id
}

// Get looks up a band by id.
func (bs *Bands) Get(id BandID) (*Band, bool) {
	b, ok := bs.byID[id]
	return b, ok
}

// Remove deletes a band's registry entry (its primitives are removed
// separately, by walking its interior).
func (bs *Bands) Remove(id BandID) {
	delete(bs.byID, id)
}

// RestoreBand reinserts a band registry entry under its original id, for
// Redo to restore exactly the band Undo removed rather than letting a
// fresh Register hand out a new one.
func (bs *Bands) RestoreBand(b Band) {
	cp := b
	bs.byID[cp.ID] = &cp
	if uint64(cp.ID) > bs.nextID {
		bs.nextID = uint64(cp.ID)
	}
}

// All returns every registered band id.
func (bs *Bands) All() []BandID {
	out := make([]BandID, 0, len(bs.byID))
	for id := range bs.byID {
		out = append(out, id)
	}
	return out
}

// Interior walks the band from its starting fixed dot to its end,
// collecting every seg/bend in order, mirroring original_source band.rs's
// to()/length() traversal.
func (g *Graph) Interior(from DotID) (segs []SegID, bends []BendID, end DotID, ok bool) {
	cur := from
	var prevSeg SegID
	havePrevSeg := false
	for {
		segsAtDot := g.dotSegs[cur]
		var next SegID
		found := false
		for s := range segsAtDot {
			if havePrevSeg && s == prevSeg {
				continue
			}
			next = s
			found = true
			break
		}
		if !found {
			return segs, bends, cur, true
		}
		seg, ok2 := g.segs[next]
		if !ok2 {
			return nil, nil, 0, false
		}
		segs = append(segs, next)
		other := seg.OtherEnd(cur)
		prevSeg, havePrevSeg = next, true
		cur = other

		otherDot, ok3 := g.dots[cur]
		if !ok3 {
			return nil, nil, 0, false
		}
		if otherDot.Fixed {
			return segs, bends, cur, true
		}
		bendID, hasBend := g.dotBend[cur]
		if !hasBend {
			// Loose dot with no bend: malformed band, but return what we have.
			return segs, bends, cur, true
		}
		bend, ok4 := g.bends[bendID]
		if !ok4 {
			return nil, nil, 0, false
		}
		bends = append(bends, bendID)
		cur = bend.OtherLooseEnd(cur)
	}
}

// Length returns the total length of a band's interior (segs as straight
// lengths, bends as arc lengths).
func (g *Graph) Length(from DotID) float64 {
	segIDs, bendIDs, _, ok := g.Interior(from)
	if !ok {
		return 0
	}
	var total float64
	for _, id := range segIDs {
		s := g.segs[id]
		fd, td := g.dots[s.From], g.dots[s.To]
		if fd != nil && td != nil {
			total += fd.Center.Distance(td.Center)
		}
	}
	for _, id := range bendIDs {
		b := g.bends[id]
		core, inner, outer := g.dots[b.Core], g.dots[b.Inner], g.dots[b.Outer]
		if core == nil || inner == nil || outer == nil {
			continue
		}
		radius := core.Center.Distance(inner.Center)
		arc := geometry.NewArc(core.Center, radius, inner.Center, outer.Center, b.CW)
		total += arc.Length()
	}
	return total
}

// OtherLooseEnd returns the bend's loose end that is not dot.
func (b *Bend) OtherLooseEnd(dot DotID) DotID {
	if b.Inner == dot {
		return b.Outer
	}
	return b.Inner
}
