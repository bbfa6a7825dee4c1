//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package trim

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// AlignedBases returns the number of bases consuming both read and
// reference in the CIGAR.
func AlignedBases(cigar sam.Cigar) int {
	var n int
	for _, co := range cigar {
		con := co.Type().Consumes()
		if con.Query == 1 && con.Reference == 1 {
			n += co.Len()
		}
	}
	return n
}

// TrimLeft converts the read bases aligned before primerEnd into a single
// leading soft clip and advances Pos by the reference bases the clipped
// region consumed. Insertions inside the clipped region are absorbed into
// the clip, deletions are dropped, and a pre-existing leading soft clip is
// coalesced into the new one. A record already starting at or past
// primerEnd is left unchanged.
func TrimLeft(r *sam.Record, primerEnd int) error {
	if r.Pos >= primerEnd {
		return nil
	}
	pos := r.Pos
	var clip int
	var hard sam.Cigar
	cigar := r.Cigar
	i := 0
	for ; i < len(cigar) && pos < primerEnd; i++ {
		co := cigar[i]
		if co.Type() == sam.CigarHardClipped {
			hard = append(hard, co)
			continue
		}
		con := co.Type().Consumes()
		switch {
		case con.Query == 1 && con.Reference == 1:
			if pos+co.Len() <= primerEnd {
				clip += co.Len()
				pos += co.Len()
			} else {
				take := primerEnd - pos
				clip += take
				pos += take
				cigar[i] = sam.NewCigarOp(co.Type(), co.Len()-take)
				i--
			}
		case con.Query == 1:
			clip += co.Len()
		case con.Reference == 1:
			pos += co.Len()
		}
	}
	// A clip boundary landing on a deletion or skip leaves an alignment
	// that cannot start with a reference-only operation: drop it too.
	for ; i < len(cigar); i++ {
		con := cigar[i].Type().Consumes()
		if con.Query == 0 && con.Reference == 1 {
			pos += cigar[i].Len()
			continue
		}
		break
	}
	if clip == 0 {
		return nil
	}
	rest := cigar[i:]
	newCigar := make(sam.Cigar, 0, len(hard)+1+len(rest))
	newCigar = append(newCigar, hard...)
	newCigar = append(newCigar, sam.NewCigarOp(sam.CigarSoftClipped, clip))
	newCigar = append(newCigar, rest...)
	r.Cigar = newCigar
	r.Pos = pos
	return nil
}

// TrimRight converts the read bases aligned at or past primerStart into a
// single trailing soft clip. The mapping position is unchanged.
func TrimRight(r *sam.Record, primerStart int) error {
	pos := r.End()
	if pos <= primerStart {
		return nil
	}
	var clip int
	var hard sam.Cigar
	cigar := r.Cigar
	i := len(cigar) - 1
	for ; i >= 0 && pos > primerStart; i-- {
		co := cigar[i]
		if co.Type() == sam.CigarHardClipped {
			hard = append(hard, co)
			continue
		}
		con := co.Type().Consumes()
		switch {
		case con.Query == 1 && con.Reference == 1:
			if pos-co.Len() >= primerStart {
				clip += co.Len()
				pos -= co.Len()
			} else {
				take := pos - primerStart
				clip += take
				pos -= take
				cigar[i] = sam.NewCigarOp(co.Type(), co.Len()-take)
				i++
			}
		case con.Query == 1:
			clip += co.Len()
		case con.Reference == 1:
			pos -= co.Len()
		}
	}
	for ; i >= 0; i-- {
		con := cigar[i].Type().Consumes()
		if con.Query == 0 && con.Reference == 1 {
			pos -= cigar[i].Len()
			continue
		}
		break
	}
	if clip == 0 {
		return nil
	}
	rest := cigar[:i+1]
	newCigar := make(sam.Cigar, 0, len(rest)+1+len(hard))
	newCigar = append(newCigar, rest...)
	newCigar = append(newCigar, sam.NewCigarOp(sam.CigarSoftClipped, clip))
	newCigar = append(newCigar, hard...)
	r.Cigar = newCigar
	return nil
}

// validate reports a record whose rewritten CIGAR consumes more read
// bases than the sequence holds. Seen on malformed inputs only.
func validate(r *sam.Record) error {
	if r.Seq.Length == 0 {
		return nil
	}
	var q int
	for _, co := range r.Cigar {
		if co.Type() == sam.CigarHardClipped {
			continue
		}
		q += co.Len() * co.Type().Consumes().Query
	}
	if q != r.Seq.Length {
		return fmt.Errorf("Read %s: CIGAR consumes %d read bases, sequence has %d", r.Name, q, r.Seq.Length)
	}
	return nil
}
