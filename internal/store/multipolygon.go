package store

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MissingPolicy decides what happens when a member way referenced by a
// relation is absent from the way store. The store never decides this
// itself; the caller picks per call.
type MissingPolicy int

const (
	// MissingAbort propagates the NotFound error, abandoning the
	// whole relation.
	MissingAbort MissingPolicy = iota
	// MissingSkip drops the missing member and assembles a
	// best-effort geometry from the rest.
	MissingSkip
)

// RelationMultiPolygon reconstructs a multipolygon from a relation's
// outer and inner member ways. Members may arrive unordered and a
// single boundary may be split across several ways; fragments are
// stitched into closed rings, inners are attached as holes to every
// outer that spatially contains them, and winding is normalized.
// Malformed topology degrades (extra disjoint rings, missing holes)
// rather than failing.
func (s *Store) RelationMultiPolygon(outer, inner []WayID, policy MissingPolicy) (orb.MultiPolygon, error) {
	if len(outer) == 0 {
		return nil, nil
	}

	// One consumed-set across both passes, like the member lists it
	// tracks share one relation.
	done := make(map[WayID]bool)

	outerRings, err := s.mergeRings(outer, done, policy)
	if err != nil {
		return nil, err
	}
	innerRings, err := s.mergeRings(inner, done, policy)
	if err != nil {
		return nil, err
	}

	filledInners := make([]orb.Ring, 0, len(innerRings))
	for _, ids := range innerRings {
		if len(ids) == 0 {
			continue
		}
		ring, err := s.fillRing(ids)
		if err != nil {
			return nil, err
		}
		filledInners = append(filledInners, ring)
	}

	mp := make(orb.MultiPolygon, 0, len(outerRings))
	for _, ids := range outerRings {
		if len(ids) == 0 {
			continue
		}
		ring, err := s.fillRing(ids)
		if err != nil {
			return nil, err
		}
		poly := orb.Polygon{ring}
		for _, in := range filledInners {
			// A hole contained by several outers is attached to
			// all of them.
			if ringWithin(in, ring) {
				poly = append(poly, in.Clone())
			}
		}
		mp = append(mp, poly)
	}

	correctWinding(mp)
	return mp, nil
}

// mergeRings stitches member ways into closed node-ID rings.
//
// Each pass consumes closed ways as complete rings and splices open
// ways onto the free endpoints of rings in progress, in any of the four
// orientations. A pass that merges nothing seeds a fresh ring with one
// unconsumed way, so the loop always terminates within N passes.
func (s *Store) mergeRings(memberIDs []WayID, done map[WayID]bool, policy MissingPolicy) ([][]NodeID, error) {
	var rings [][]NodeID

	for added := 1; added > 0; {
		added = 0
		for _, id := range memberIDs {
			if done[id] {
				continue
			}
			way, err := s.ways.At(id)
			if err != nil {
				if policy == MissingSkip && errors.Is(err, ErrNotFound) {
					done[id] = true
					continue
				}
				return nil, err
			}

			ids := way.IDs()
			if way.Closed() {
				rings = append(rings, ids)
				done[id] = true
				added++
				continue
			}

			jFirst, jLast := ids[0], ids[len(ids)-1]
			for ri, ring := range rings {
				if len(ring) == 0 || ring[0] == ring[len(ring)-1] {
					continue // never extend an already-closed ring
				}
				oFirst, oLast := ring[0], ring[len(ring)-1]
				// The shared endpoint is already on the ring, so
				// splices drop it from the fragment.
				switch {
				case oLast == jFirst:
					rings[ri] = append(ring, ids[1:]...)
				case oLast == jLast:
					rings[ri] = appendReversed(ring, ids[:len(ids)-1])
				case jLast == oFirst:
					rings[ri] = append(ids[:len(ids)-1:len(ids)-1], ring...)
				case jFirst == oFirst:
					rings[ri] = append(appendReversed(nil, ids[1:]), ring...)
				default:
					continue
				}
				done[id] = true
				added++
				break
			}
		}

		// Nothing merged but members remain: seed a new ring so a
		// fragment that touches no ring yet can attract others.
		if added == 0 {
			for _, id := range memberIDs {
				if done[id] {
					continue
				}
				way, err := s.ways.At(id)
				if err != nil {
					if policy == MissingSkip && errors.Is(err, ErrNotFound) {
						done[id] = true
						continue
					}
					return nil, err
				}
				rings = append(rings, way.IDs())
				done[id] = true
				added++
				break
			}
		}
	}

	return rings, nil
}

// appendReversed appends ids to dst back to front.
func appendReversed(dst, ids []NodeID) []NodeID {
	for i := len(ids) - 1; i >= 0; i-- {
		dst = append(dst, ids[i])
	}
	return dst
}

// fillRing resolves a node-ID ring to coordinates, in order, and closes
// it explicitly.
func (s *Store) fillRing(ids []NodeID) (orb.Ring, error) {
	ring := make(orb.Ring, 0, len(ids)+1)
	for _, id := range ids {
		c, err := s.nodes.At(id)
		if err != nil {
			return nil, err
		}
		ring = append(ring, c.Point())
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// WayLineString resolves a way's nodes to a linestring.
func (s *Store) WayLineString(id WayID) (orb.LineString, error) {
	way, err := s.ways.At(id)
	if err != nil {
		return nil, err
	}
	n := way.Len()
	ls := make(orb.LineString, 0, n)
	for i := 0; i < n; i++ {
		c, err := s.nodes.At(way.ID(i))
		if err != nil {
			return nil, err
		}
		ls = append(ls, c.Point())
	}
	return ls, nil
}

// WayPolygon resolves a closed way to a single-ring polygon with
// normalized winding.
func (s *Store) WayPolygon(id WayID) (orb.Polygon, error) {
	way, err := s.ways.At(id)
	if err != nil {
		return nil, err
	}
	ring, err := s.fillRing(way.IDs())
	if err != nil {
		return nil, err
	}
	poly := orb.Polygon{ring}
	correctWinding(orb.MultiPolygon{poly})
	return poly, nil
}

// MultiPolygonLineString is the degenerate accessor for callers that
// treat a relation as a simple path: the first outer ring's point
// sequence verbatim, holes and further outers ignored.
func MultiPolygonLineString(mp orb.MultiPolygon) orb.LineString {
	if len(mp) == 0 || len(mp[0]) == 0 {
		return nil
	}
	return orb.LineString(mp[0][0].Clone())
}

// ringWithin reports whether every point of inner lies inside or on
// outer.
func ringWithin(inner, outer orb.Ring) bool {
	if len(inner) == 0 {
		return false
	}
	for _, p := range inner {
		if !planar.RingContains(outer, p) {
			return false
		}
	}
	return true
}

// correctWinding orients exterior rings counter-clockwise and holes
// clockwise, in place.
func correctWinding(mp orb.MultiPolygon) {
	for _, poly := range mp {
		for i, ring := range poly {
			want := orb.CCW
			if i > 0 {
				want = orb.CW
			}
			if len(ring) >= 4 && ring.Orientation() != want {
				ring.Reverse()
			}
		}
	}
}
