//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package lookup

import "github.com/artic-network/align-trim/lib/scheme"

// Orientation selects which side of an amplicon a query refers to.
type Orientation int8

const (
	// Forward looks for a left (forward-strand) primer covering the
	// position a read starts at.
	Forward Orientation = 1
	// Reverse looks for a right (reverse-strand) primer covering the
	// position a read ends at.
	Reverse Orientation = -1
)

// Match is a resolved primer lookup: the selected primer and its parent
// amplicon.
type Match struct {
	Primer   *scheme.Primer
	Amplicon *scheme.Amplicon
}

// AmpliconNumber returns the matched amplicon number, or -1 for no match.
func (m *Match) AmpliconNumber() int {
	if m == nil || m.Amplicon == nil {
		return -1
	}
	return m.Amplicon.Number
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Find returns the best primer match for a reference coordinate, or nil
// when no pool row covers the position. When several pool rows cover the
// position, the amplicon whose oriented boundary is nearest pos wins, ties
// going to the lowest amplicon number. Among alternate primers of one
// amplicon side, the primer whose own boundary is nearest pos wins, ties
// going to the lowest primer start. Both rules are deterministic.
func (t *Table) Find(pos int, orient Orientation, chrom string) *Match {
	var best *scheme.Amplicon
	var bestDist int
	for row := 0; row < t.rows; row++ {
		ci := t.cell(chrom, row, pos)
		if ci == absent {
			continue
		}
		a := &t.amplicons[ci]
		var d int
		if orient == Forward {
			d = abs(pos - a.Start)
		} else {
			d = abs(pos - a.End)
		}
		if best == nil || d < bestDist || (d == bestDist && a.Number < best.Number) {
			best = a
			bestDist = d
		}
	}
	if best == nil {
		return nil
	}
	side := best.Left
	if orient == Reverse {
		side = best.Right
	}
	var primer *scheme.Primer
	var primerDist int
	for i := range side {
		p := &side[i]
		var d int
		if orient == Forward {
			d = abs(pos - p.Start)
		} else {
			d = abs(pos - p.End)
		}
		if primer == nil || d < primerDist || (d == primerDist && p.Start < primer.Start) {
			primer = p
			primerDist = d
		}
	}
	return &Match{Primer: primer, Amplicon: best}
}
