//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package depth

// Key identifies one amplicon on one reference.
type Key struct {
	Chrom    string
	Amplicon int
}

// Normalizer caps the number of retained reads per amplicon. Acceptance
// follows input record order, so output depth is reproducible for a given
// input ordering but is not a uniform random sample.
type Normalizer struct {
	target int
	counts map[Key]int
}

// New returns a Normalizer with the given target depth. A zero or
// negative target disables normalization.
func New(target int) *Normalizer {
	return &Normalizer{target: target, counts: make(map[Key]int)}
}

// Accept increments the counter for (chrom, amplicon) and reports whether
// the read is within the target depth. Once the cap is reached every
// further read for that amplicon is rejected for the rest of the run.
func (n *Normalizer) Accept(chrom string, amplicon int) bool {
	if n.target <= 0 {
		return true
	}
	k := Key{Chrom: chrom, Amplicon: amplicon}
	n.counts[k]++
	return n.counts[k] <= n.target
}

// AcceptPair counts both mates of a resolved pair and reports whether
// the first of the two is within the target depth. Mates are kept or
// rejected together.
func (n *Normalizer) AcceptPair(chrom string, amplicon int) bool {
	if n.target <= 0 {
		return true
	}
	k := Key{Chrom: chrom, Amplicon: amplicon}
	n.counts[k] += 2
	return n.counts[k]-1 <= n.target
}

// Count returns the number of reads seen so far for (chrom, amplicon).
func (n *Normalizer) Count(chrom string, amplicon int) int {
	return n.counts[Key{Chrom: chrom, Amplicon: amplicon}]
}
