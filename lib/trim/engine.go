//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package trim

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/biogo/hts/sam"

	"github.com/artic-network/align-trim/lib/depth"
	"github.com/artic-network/align-trim/lib/lookup"
	"github.com/artic-network/align-trim/lib/report"
)

// GroupUnmatched labels reads whose left and right primer matches do not
// agree on an amplicon.
const GroupUnmatched = "unmatched"

var rgTag = sam.NewTag("RG")

// Policy holds the per-run trimming switches.
type Policy struct {
	TrimPrimers         bool
	RequireFullLength   bool
	FullLengthTolerance int
	MinMapQ             byte
	AllowIncorrectPairs bool
	Paired              bool
	SetReadGroups       bool
}

// Counters tracks per-record outcomes across a run.
type Counters struct {
	Total           uint64
	Skipped         uint64
	LowMapQ         uint64
	NotFullLength   uint64
	ZeroLength      uint64
	BadCigar        uint64
	MismatchedPairs uint64
	DepthCapped     uint64
	Written         uint64
}

// Engine classifies and rewrites one record at a time against the primer
// lookup table. In paired mode records are buffered by read name until
// their mate arrives; Flush drains the leftovers with single-record rules.
type Engine struct {
	Table  *lookup.Table
	Policy Policy
	Norm   *depth.Normalizer
	Stats  *report.Stats

	Counts Counters

	pending map[string]*classified
	seq     uint64
}

type classified struct {
	rec         *sam.Record
	left, right *lookup.Match
	group       string
	amplicon    int
	keep        bool
	counted     bool
	seq         uint64
}

// NewEngine returns an Engine over the given table, policy and run-wide
// accumulators.
func NewEngine(table *lookup.Table, policy Policy, norm *depth.Normalizer, stats *report.Stats) *Engine {
	return &Engine{
		Table:   table,
		Policy:  policy,
		Norm:    norm,
		Stats:   stats,
		pending: make(map[string]*classified),
	}
}

// Process classifies one record and returns the records ready to be
// written: none while a mate is pending, one in single-read mode, two when
// a pair resolves.
func (e *Engine) Process(r *sam.Record) []*sam.Record {
	e.Counts.Total++
	if r.Flags&sam.Unmapped != 0 || r.Flags&sam.Secondary != 0 || r.Flags&sam.Supplementary != 0 {
		e.Counts.Skipped++
		return nil
	}
	c := e.classify(r)
	if !e.Policy.Paired || r.Flags&sam.Paired == 0 {
		return e.emit(c)
	}
	mate, ok := e.pending[r.Name]
	if !ok {
		c.seq = e.seq
		e.seq++
		e.pending[r.Name] = c
		return nil
	}
	delete(e.pending, r.Name)
	if mate.keep && c.keep {
		if mate.group != c.group && !e.Policy.AllowIncorrectPairs {
			e.Counts.MismatchedPairs += 2
			return nil
		}
		// One depth decision per resolved pair: mates survive or fall
		// together, never as an orphan mate.
		if mate.amplicon >= 0 && mate.amplicon == c.amplicon {
			if !e.Norm.AcceptPair(mate.rec.Ref.Name(), mate.amplicon) {
				e.Counts.DepthCapped += 2
				return nil
			}
			mate.counted = true
			c.counted = true
		}
	}
	return append(e.emit(mate), e.emit(c)...)
}

// Flush drains unpaired leftovers in arrival order, applying
// single-record rules as if no partner existed.
func (e *Engine) Flush() []*sam.Record {
	leftovers := make([]*classified, 0, len(e.pending))
	for name, c := range e.pending {
		delete(e.pending, name)
		leftovers = append(leftovers, c)
	}
	sort.Slice(leftovers, func(i, j int) bool { return leftovers[i].seq < leftovers[j].seq })
	var out []*sam.Record
	for _, c := range leftovers {
		out = append(out, e.emit(c)...)
	}
	return out
}

// classify resolves primer matches, group assignment and the trim for one
// mapped record.
func (e *Engine) classify(r *sam.Record) *classified {
	c := &classified{rec: r, group: GroupUnmatched, amplicon: -1}
	if r.MapQ < e.Policy.MinMapQ {
		e.Counts.LowMapQ++
		return c
	}
	chrom := r.Ref.Name()
	origStart := r.Pos
	origEnd := r.End()
	c.left = e.Table.Find(origStart, lookup.Forward, chrom)
	c.right = e.Table.Find(origEnd, lookup.Reverse, chrom)
	if c.left != nil && c.right != nil && c.left.AmpliconNumber() == c.right.AmpliconNumber() {
		c.group = poolLabel(c.left.Amplicon.Pool)
		c.amplicon = c.left.AmpliconNumber()
	}
	if e.Policy.RequireFullLength {
		tol := e.Policy.FullLengthTolerance
		if c.left == nil || c.right == nil ||
			origStart > c.left.Primer.End+tol ||
			origEnd < c.right.Primer.Start-tol {
			e.Counts.NotFullLength++
			return c
		}
	}
	if e.Policy.TrimPrimers {
		if c.left != nil {
			if err := TrimLeft(r, c.left.Primer.End); err != nil {
				e.Counts.BadCigar++
				return c
			}
		}
		if c.right != nil {
			if err := TrimRight(r, c.right.Primer.Start); err != nil {
				e.Counts.BadCigar++
				return c
			}
		}
		if err := validate(r); err != nil {
			e.Counts.BadCigar++
			return c
		}
		if AlignedBases(r.Cigar) == 0 {
			e.Counts.ZeroLength++
			return c
		}
	}
	c.keep = true
	return c
}

// emit applies the depth cap, sets the group tag and updates the run
// accumulators for a kept record.
func (e *Engine) emit(c *classified) []*sam.Record {
	if !c.keep {
		return nil
	}
	if c.amplicon >= 0 && !c.counted && !e.Norm.Accept(c.rec.Ref.Name(), c.amplicon) {
		e.Counts.DepthCapped++
		return nil
	}
	if e.Policy.SetReadGroups {
		setAux(c.rec, rgTag, c.group)
	}
	if c.left != nil {
		e.Stats.AddHit(c.left.Primer.Name)
	}
	if c.right != nil {
		e.Stats.AddHit(c.right.Primer.Name)
	}
	e.Stats.AddDepth(c.rec)
	e.Counts.Written++
	return []*sam.Record{c.rec}
}

func poolLabel(pool int) string {
	return strconv.Itoa(pool)
}

// setAux replaces or appends a string aux field on the record.
func setAux(r *sam.Record, tag sam.Tag, value string) {
	aux, err := sam.NewAux(tag, value)
	if err != nil {
		return
	}
	for i := range r.AuxFields {
		if bytes.Equal(r.AuxFields[i][:2], tag[:]) {
			r.AuxFields[i] = aux
			return
		}
	}
	r.AuxFields = append(r.AuxFields, aux)
}
