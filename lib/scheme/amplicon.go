//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scheme

import (
	"fmt"
	"sort"

	"github.com/biogo/store/interval"
)

// Amplicon is the genomic region between the outer boundaries of one
// numbered group of primers. Start is the min of the left primer starts,
// End the max of the right primer ends (0-based, half-open).
type Amplicon struct {
	Number int
	Chrom  string
	Pool   int
	Left   []Primer
	Right  []Primer
	Start  int
	End    int
}

// CreateAmplicons groups primers by amplicon number and derives the
// amplicon boundaries. Left and right primer slices are sorted by start.
func CreateAmplicons(primers []Primer) ([]Amplicon, error) {
	byNumber := make(map[int]*Amplicon)
	var numbers []int
	for _, p := range primers {
		a, ok := byNumber[p.AmpliconNumber]
		if !ok {
			a = &Amplicon{Number: p.AmpliconNumber, Chrom: p.Chrom, Pool: p.Pool}
			byNumber[p.AmpliconNumber] = a
			numbers = append(numbers, p.AmpliconNumber)
		}
		if a.Chrom != p.Chrom {
			return nil, fmt.Errorf("Amplicon %d spans chroms %s and %s", p.AmpliconNumber, a.Chrom, p.Chrom)
		}
		if a.Pool != p.Pool {
			return nil, fmt.Errorf("Amplicon %d spans pools %d and %d", p.AmpliconNumber, a.Pool, p.Pool)
		}
		if p.Side == SideLeft {
			a.Left = append(a.Left, p)
		} else {
			a.Right = append(a.Right, p)
		}
	}
	sort.Ints(numbers)
	amplicons := make([]Amplicon, 0, len(numbers))
	for _, n := range numbers {
		a := byNumber[n]
		if len(a.Left) == 0 || len(a.Right) == 0 {
			return nil, fmt.Errorf("Amplicon %d is missing a left or right primer", n)
		}
		sort.Sort(ByStart(a.Left))
		sort.Sort(ByStart(a.Right))
		a.Start = a.Left[0].Start
		a.End = a.Right[0].End
		for _, p := range a.Right {
			if p.End > a.End {
				a.End = p.End
			}
		}
		amplicons = append(amplicons, *a)
	}
	return amplicons, nil
}

// Integer-specific intervals for the pool-overlap check.

type ampInterval struct {
	start, end int
	uid        uintptr
	number     int
}

func (i ampInterval) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	return i.end > b.Start && i.start < b.End
}

func (i ampInterval) ID() uintptr { return i.uid }

func (i ampInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.start, End: i.end}
}

// ValidatePoolOverlaps checks the input precondition that amplicons
// assigned to the same pool do not overlap on a chrom. The lookup table
// silently overwrites cells on overlap, so a violation is caught here.
func ValidatePoolOverlaps(amplicons []Amplicon) error {
	trees := make(map[string]map[int]*interval.IntTree)
	for ia, a := range amplicons {
		if _, ok := trees[a.Chrom]; !ok {
			trees[a.Chrom] = make(map[int]*interval.IntTree)
		}
		if _, ok := trees[a.Chrom][a.Pool]; !ok {
			trees[a.Chrom][a.Pool] = &interval.IntTree{}
		}
		iv := ampInterval{start: a.Start, end: a.End, uid: uintptr(ia), number: a.Number}
		for _, hit := range trees[a.Chrom][a.Pool].Get(iv) {
			return fmt.Errorf("Amplicons %d and %d overlap in pool %d on %s", hit.(ampInterval).number, a.Number, a.Pool, a.Chrom)
		}
		if err := trees[a.Chrom][a.Pool].Insert(iv, false); err != nil {
			return err
		}
	}
	return nil
}
