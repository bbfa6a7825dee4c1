//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package lookup

import (
	"fmt"

	"gopkg.in/fatih/set.v0"

	"github.com/artic-network/align-trim/lib/scheme"
)

// absent marks a grid cell covered by no amplicon.
const absent = int32(-1)

// Table is the primer lookup index: one dense [pool][position] grid per
// reference, each cell holding an index into the amplicon arena or absent.
// Row r covers pool id r+1. Built once per run, read-only afterwards.
type Table struct {
	grids     map[string][][]int32
	amplicons []scheme.Amplicon
	rows      int
	padding   int
}

// Build allocates the per-reference grids, sized (max pool id) x
// (reference length + 1), and writes each amplicon's arena index into its
// pool row over [Start-padding, End+padding), clipped to the grid. An
// amplicon naming an unknown pool or reference is a configuration error.
func Build(refLengths []scheme.RefLength, amplicons []scheme.Amplicon, pools set.Interface, padding int) (*Table, error) {
	if padding < 0 {
		return nil, fmt.Errorf("Negative padding %d", padding)
	}
	rows := scheme.MaxPool(pools)
	if rows == 0 {
		return nil, fmt.Errorf("Empty pool set")
	}
	t := &Table{
		grids:     make(map[string][][]int32, len(refLengths)),
		amplicons: amplicons,
		rows:      rows,
		padding:   padding,
	}
	for _, rl := range refLengths {
		grid := make([][]int32, rows)
		for i := range grid {
			row := make([]int32, rl.Length+1)
			for j := range row {
				row[j] = absent
			}
			grid[i] = row
		}
		t.grids[rl.Name] = grid
	}
	for ia, a := range amplicons {
		if !pools.Has(a.Pool) {
			return nil, fmt.Errorf("Amplicon %d uses pool %d not present in the pool set", a.Number, a.Pool)
		}
		grid, ok := t.grids[a.Chrom]
		if !ok {
			return nil, fmt.Errorf("Amplicon %d reference %s has no length entry", a.Number, a.Chrom)
		}
		row := grid[a.Pool-1]
		start := a.Start - padding
		if start < 0 {
			start = 0
		}
		end := a.End + padding
		if end > len(row) {
			end = len(row)
		}
		for pos := start; pos < end; pos++ {
			row[pos] = int32(ia)
		}
	}
	return t, nil
}

// Rows returns the number of pool rows in each grid.
func (t *Table) Rows() int { return t.rows }

// Length returns the position count of the grid for chrom, or 0 if the
// reference is unknown.
func (t *Table) Length(chrom string) int {
	grid, ok := t.grids[chrom]
	if !ok {
		return 0
	}
	return len(grid[0])
}

// Amplicon returns the arena entry at index i.
func (t *Table) Amplicon(i int) *scheme.Amplicon { return &t.amplicons[i] }

// cell returns the arena index at (chrom, pool row, pos), or absent when
// out of bounds.
func (t *Table) cell(chrom string, row, pos int) int32 {
	grid, ok := t.grids[chrom]
	if !ok {
		return absent
	}
	if pos < 0 || pos >= len(grid[row]) {
		return absent
	}
	return grid[row][pos]
}
