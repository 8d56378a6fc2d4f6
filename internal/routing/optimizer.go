// Package routing orders tour stops with a nearest-neighbor heuristic.
// Anchor stops (hotels, overnight breaks) are fixed waypoints: they are
// never moved, and each run of customer stops between two anchors is
// optimized independently, starting from the preceding anchor.
package routing

import (
	"tour-planner/internal/distance"
	"tour-planner/internal/models"
)

// segment is a maximal run of non-anchor stops together with the
// location of the anchor that precedes it. origin is nil for the run
// before the first anchor. anchor is the stop that closes the run,
// nil for the trailing run.
type segment struct {
	origin *models.Coordinates
	stops  []models.Stop
	anchor *models.Stop
}

// Optimize reorders the stop list so that within each anchor-delimited
// segment, located customer stops follow a nearest-neighbor chain from
// the segment's origin. Anchors keep their positions relative to the
// customer runs they delimit. Stops without resolvable coordinates are
// moved to the end of their segment in original relative order.
//
// The function is pure: it never errors and never mutates its input.
// Applying it to its own output yields the same order.
func Optimize(stops []models.Stop) []models.Stop {
	if len(stops) <= 2 {
		return stops
	}

	ordered := make([]models.Stop, 0, len(stops))
	for _, seg := range splitSegments(stops) {
		ordered = append(ordered, orderSegment(seg)...)
		if seg.anchor != nil {
			ordered = append(ordered, *seg.anchor)
		}
	}
	return ordered
}

// splitSegments partitions the list in a single scan. Consecutive
// anchors produce empty runs, which pass through untouched.
func splitSegments(stops []models.Stop) []segment {
	var segments []segment
	var origin *models.Coordinates
	var run []models.Stop

	for i := range stops {
		if stops[i].Kind != models.StopKindAnchor {
			run = append(run, stops[i])
			continue
		}

		closing := stops[i]
		segments = append(segments, segment{origin: origin, stops: run, anchor: &closing})
		run = nil

		if loc, ok := closing.Location(); ok {
			origin = &loc
		} else {
			origin = nil
		}
	}

	return append(segments, segment{origin: origin, stops: run})
}

// orderSegment optimizes a single run. A run with fewer than two
// located stops has nothing to reorder and is returned as-is. When the
// run has no preceding anchor, its own first stop acts as the origin
// and therefore stays first.
func orderSegment(seg segment) []models.Stop {
	var located, unlocated []models.Stop
	for _, s := range seg.stops {
		if _, ok := s.Location(); ok {
			located = append(located, s)
		} else {
			unlocated = append(unlocated, s)
		}
	}

	if len(located) <= 1 {
		return seg.stops
	}

	origin := seg.origin
	if origin == nil {
		first, ok := seg.stops[0].Location()
		if !ok {
			return seg.stops
		}
		origin = &first
	}

	ordered := nearestNeighbor(*origin, located)
	return append(ordered, unlocated...)
}

// nearestNeighbor greedily picks the closest remaining stop. The
// strictly-smaller comparison means equidistant candidates resolve to
// the earliest one in input order.
func nearestNeighbor(start models.Coordinates, stops []models.Stop) []models.Stop {
	remaining := make([]models.Stop, len(stops))
	copy(remaining, stops)

	ordered := make([]models.Stop, 0, len(stops))
	current := start

	for len(remaining) > 0 {
		bestIdx := -1
		bestDistance := -1.0

		for i, candidate := range remaining {
			loc, _ := candidate.Location()
			d := distance.Kilometers(current, loc)
			if bestIdx < 0 || d < bestDistance {
				bestIdx = i
				bestDistance = d
			}
		}

		next := remaining[bestIdx]
		ordered = append(ordered, next)
		current, _ = next.Location()
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return ordered
}
